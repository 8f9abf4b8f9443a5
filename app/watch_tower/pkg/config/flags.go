package config

import (
	"sync/atomic"
	"time"
)

// Flags 功能开关与容量参数
type Flags struct {
	DiscoveryEnabled   bool
	ContentEnabled     bool
	ReadabilityEnabled bool
	MaxResults         int
	CacheTTL           time.Duration
}

// FlagSource 提供当前生效的开关
type FlagSource interface {
	Flags() Flags
}

// FlagStore 可在运行期原子替换的开关，读方总是看到完整的一份
type FlagStore struct {
	v atomic.Pointer[Flags]
}

// NewFlagStore 以初始值创建
func NewFlagStore(initial Flags) *FlagStore {
	s := &FlagStore{}
	s.Store(initial)
	return s
}

// Flags 实现 FlagSource
func (s *FlagStore) Flags() Flags {
	if f := s.v.Load(); f != nil {
		return *f
	}
	return Flags{}
}

// Store 替换整份开关
func (s *FlagStore) Store(f Flags) {
	s.v.Store(&f)
}

// Update 在当前值上修改并写回
func (s *FlagStore) Update(fn func(*Flags)) Flags {
	for {
		old := s.v.Load()
		next := Flags{}
		if old != nil {
			next = *old
		}
		fn(&next)
		if s.v.CompareAndSwap(old, &next) {
			return next
		}
	}
}
