package util

import (
	"container/list"
	"os"
	"strconv"
	"sync"

	"gorm.io/gorm"
)

const defaultUserEmailCacheSize = 1000

// userLRU maps user IDs to emails with least-recently-used eviction.
type userLRU struct {
	mu       sync.Mutex
	order    *list.List
	byID     map[uint]*list.Element
	capacity int
}

type userEntry struct {
	userID uint
	email  string
}

func newUserLRU(capacity int) *userLRU {
	if capacity <= 0 {
		capacity = defaultUserEmailCacheSize
	}
	return &userLRU{
		order:    list.New(),
		byID:     make(map[uint]*list.Element),
		capacity: capacity,
	}
}

func (c *userLRU) get(userID uint) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ele, ok := c.byID[userID]
	if !ok {
		return "", false
	}
	c.order.MoveToFront(ele)
	return ele.Value.(userEntry).email, true
}

func (c *userLRU) set(userID uint, email string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ele, ok := c.byID[userID]; ok {
		c.order.MoveToFront(ele)
		ele.Value = userEntry{userID: userID, email: email}
		return
	}
	c.byID[userID] = c.order.PushFront(userEntry{userID: userID, email: email})
	if c.order.Len() > c.capacity {
		c.evictOldest()
	}
}

func (c *userLRU) evictOldest() {
	tail := c.order.Back()
	if tail == nil {
		return
	}
	delete(c.byID, tail.Value.(userEntry).userID)
	c.order.Remove(tail)
}

func (c *userLRU) delete(userID uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ele, ok := c.byID[userID]; ok {
		c.order.Remove(ele)
		delete(c.byID, userID)
	}
}

var userCache *userLRU

// InitUserEmailCache sizes the user email cache. Capacities at or below
// zero fall back to the default of 1000 entries.
func InitUserEmailCache(capacity int) {
	userCache = newUserLRU(capacity)
}

// InitUserEmailCacheFromEnv sizes the cache from USER_EMAIL_CACHE_SIZE,
// using the default when the variable is unset or unparseable.
func InitUserEmailCacheFromEnv() {
	size, err := strconv.Atoi(os.Getenv("USER_EMAIL_CACHE_SIZE"))
	if err != nil {
		size = 0
	}
	InitUserEmailCache(size)
}

// UserEmailCacheGet returns the cached email for a user.
func UserEmailCacheGet(userID uint) (string, bool) {
	if userCache == nil {
		return "", false
	}
	return userCache.get(userID)
}

// UserEmailCacheSet records the email for a user.
func UserEmailCacheSet(userID uint, email string) {
	if userCache != nil {
		userCache.set(userID, email)
	}
}

// UserEmailCacheDelete drops a user from the cache.
func UserEmailCacheDelete(userID uint) {
	if userCache != nil {
		userCache.delete(userID)
	}
}

// GetUserEmail resolves a user's email through the cache, falling back to
// the users table. Unknown and soft-deleted accounts resolve to "".
func GetUserEmail(db *gorm.DB, userID uint) string {
	if userID == 0 {
		return ""
	}
	if email, ok := UserEmailCacheGet(userID); ok {
		return email
	}
	if db == nil {
		return ""
	}
	var row struct{ Email string }
	if err := db.Table("users").Select("email").Where("id = ? AND deleted_at IS NULL", userID).Take(&row).Error; err != nil {
		return ""
	}
	if row.Email != "" {
		UserEmailCacheSet(userID, row.Email)
	}
	return row.Email
}
