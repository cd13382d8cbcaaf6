package persona

import "strings"

// Store 提供治疗师角色查询，供提示词构建与 HTTP 层使用。
type Store interface {
	List() []Persona
	FindByID(id string) (Persona, bool)
}

// MemoryStore keeps personas in load order with an id index. Ids match case-insensitively.
type MemoryStore struct {
	order []Persona
	byID  map[string]int
}

// NewMemoryStore indexes items. A later persona with a duplicate id replaces the earlier one.
func NewMemoryStore(items []Persona) *MemoryStore {
	s := &MemoryStore{byID: make(map[string]int, len(items))}
	for _, item := range items {
		key := indexKey(item.ID)
		if idx, dup := s.byID[key]; dup {
			s.order[idx] = item
			continue
		}
		s.byID[key] = len(s.order)
		s.order = append(s.order, item)
	}
	return s
}

func (s *MemoryStore) List() []Persona {
	out := make([]Persona, len(s.order))
	copy(out, s.order)
	return out
}

func (s *MemoryStore) FindByID(id string) (Persona, bool) {
	idx, ok := s.byID[indexKey(id)]
	if !ok {
		return Persona{}, false
	}
	return s.order[idx], true
}

// Resolve 返回 id 对应的角色；id 未知时退回第一个角色。
func Resolve(s Store, id string) (Persona, bool) {
	if p, ok := s.FindByID(id); ok {
		return p, true
	}
	items := s.List()
	if len(items) == 0 {
		return Persona{}, false
	}
	return items[0], true
}

func indexKey(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
