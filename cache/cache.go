package cache

import (
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"
)

// A Cache holds solution tables (or anything else expensive to build) for the
// lifetime of one solving session. Recomputing across sessions is fine; what
// we want to avoid is rebuilding the same table over and over while a
// strategy or an interactive session keeps asking about smaller sub-states.

type Cache struct {
	sync.Mutex
	objects map[string]interface{}
	// keys in the order they were loaded, oldest first.
	order []string
	limit int
}

type loadFunc func(key string) (interface{}, error)

func New() *Cache {
	return &Cache{objects: make(map[string]interface{})}
}

// SetLimit caps the number of cached objects; loading past it evicts the
// oldest. 0 means no limit.
func (c *Cache) SetLimit(limit int) {
	c.Lock()
	defer c.Unlock()
	c.limit = max(0, limit)
	c.evict()
}

func (c *Cache) evict() {
	for c.limit > 0 && len(c.order) > c.limit {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.objects, oldest)
		log.Debug().Str("key", oldest).Msg("evicted from cache")
	}
}

// Key is the cache key for a table covering eggs and untested floors.
// Offsets never take part in it.
func Key(eggs, untested int) string {
	return strconv.Itoa(eggs) + "/" + strconv.Itoa(untested)
}

func (c *Cache) load(key string, loadFunc loadFunc) (interface{}, error) {
	log.Debug().Str("key", key).Msg("loading into cache")

	obj, err := loadFunc(key)
	if err != nil {
		return nil, err
	}
	c.objects[key] = obj
	c.order = append(c.order, key)
	c.evict()
	return obj, nil
}

// Load returns the object stored under key, calling loadFunc to build it
// if it is not there yet. Failed loads are not cached.
func (c *Cache) Load(key string, loadFunc loadFunc) (interface{}, error) {
	c.Lock()
	defer c.Unlock()
	if obj, ok := c.objects[key]; ok {
		log.Debug().Str("key", key).Msg("getting obj from cache")
		return obj, nil
	}
	return c.load(key, loadFunc)
}

// Each calls fn for every cached object until fn returns false.
func (c *Cache) Each(fn func(key string, obj interface{}) bool) {
	c.Lock()
	defer c.Unlock()
	for k, v := range c.objects {
		if !fn(k, v) {
			return
		}
	}
}

func (c *Cache) Len() int {
	c.Lock()
	defer c.Unlock()
	return len(c.objects)
}

func (c *Cache) Clear() {
	c.Lock()
	defer c.Unlock()
	c.objects = make(map[string]interface{})
	c.order = nil
}
