package cart

import (
	"encoding/json"
	"sync"
)

// Item 是购物车里的一行，数量恒 ≥1（减到 0 即整行删除）
type Item struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"` // 单价，分
	Image    string `json:"image"`
	Quantity int    `json:"quantity"`
}

type snapshot struct {
	Items []Item `json:"items"`
	Total int64  `json:"total"`
}

// Store 维护本地购物车状态：行保持加入顺序，total 每次变更后重算。
// 纯本地，不和服务端同步；持久化是整库快照，多写者 last-write-wins。
type Store struct {
	mu    sync.Mutex
	items []Item
	total int64
	p     Persister
}

// NewStore 从持久层恢复快照；total 以重算为准，不信任存下来的值
func NewStore(p Persister) (*Store, error) {
	s := &Store{p: p}
	if p == nil {
		return s, nil
	}
	b, err := p.Load()
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return s, nil
	}
	var snap snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, err
	}
	for _, it := range snap.Items {
		if it.Quantity < 1 {
			continue
		}
		s.items = append(s.items, it)
	}
	s.total = computeTotal(s.items)
	return s, nil
}

// AddItem 已有行 +1，否则以数量 1 插到末尾
func (s *Store) AddItem(it Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	found := false
	for i := range s.items {
		if s.items[i].ID == it.ID {
			s.items[i].Quantity++
			found = true
			break
		}
	}
	if !found {
		it.Quantity = 1
		s.items = append(s.items, it)
	}
	return s.recompute()
}

// RemoveItem 整行删除，不管数量
func (s *Store) RemoveItem(id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = deleteLine(s.items, id)
	return s.recompute()
}

// DecrementItem 数量 >1 减一；等于 1 时整行删掉
func (s *Store) DecrementItem(id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID != id {
			continue
		}
		if s.items[i].Quantity > 1 {
			s.items[i].Quantity--
		} else {
			s.items = deleteLine(s.items, id)
		}
		break
	}
	return s.recompute()
}

func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	return s.recompute()
}

func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) Total() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// recompute 调用方必须持锁
func (s *Store) recompute() error {
	s.total = computeTotal(s.items)
	return s.persist()
}

func (s *Store) persist() error {
	if s.p == nil {
		return nil
	}
	b, err := json.Marshal(snapshot{Items: s.items, Total: s.total})
	if err != nil {
		return err
	}
	return s.p.Save(b)
}

func computeTotal(items []Item) int64 {
	var total int64
	for _, it := range items {
		total += it.Price * int64(it.Quantity)
	}
	return total
}

func deleteLine(items []Item, id uint) []Item {
	out := items[:0]
	for _, it := range items {
		if it.ID != id {
			out = append(out, it)
		}
	}
	return out
}
