package extract

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var ErrNoActiveTab = errors.New("no active tab")

// Tab is an open page.
type Tab struct {
	ID  int    `json:"id"`
	URL string `json:"url"`
}

// Tabs tracks open pages and which one is active.
type Tabs struct {
	mu     sync.Mutex
	next   int
	tabs   map[int]Tab
	active int
}

func NewTabs() *Tabs {
	return &Tabs{next: 1, tabs: map[int]Tab{}}
}

// Open registers url as a new tab and makes it active.
func (t *Tabs) Open(url string) Tab {
	t.mu.Lock()
	defer t.mu.Unlock()
	tab := Tab{ID: t.next, URL: url}
	t.next++
	t.tabs[tab.ID] = tab
	t.active = tab.ID
	return tab
}

func (t *Tabs) Activate(id int) (Tab, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tab, ok := t.tabs[id]
	if !ok {
		return Tab{}, fmt.Errorf("tab %d not found", id)
	}
	t.active = id
	return tab, nil
}

func (t *Tabs) Active() (Tab, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tab, ok := t.tabs[t.active]
	if !ok {
		return Tab{}, ErrNoActiveTab
	}
	return tab, nil
}

// Close forgets the tab; closing the active tab leaves no tab active.
func (t *Tabs) Close(id int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.tabs, id)
	if t.active == id {
		t.active = 0
	}
}

// List returns open tabs ordered by id.
func (t *Tabs) List() []Tab {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Tab, 0, len(t.tabs))
	for _, tab := range t.tabs {
		out = append(out, tab)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
