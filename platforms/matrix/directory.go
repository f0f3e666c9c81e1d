package matrix

import (
	"sync"

	"maunium.net/go/mautrix/id"

	"aide/core"
)

// userDirectory hands out stable numeric ids for Matrix user ids. The
// mapping lives as long as the process, like the history it keys.
type userDirectory struct {
	mu   sync.Mutex
	ids  map[id.UserID]core.UserID
	next core.UserID
}

func newUserDirectory() *userDirectory {
	return &userDirectory{ids: make(map[id.UserID]core.UserID)}
}

func (d *userDirectory) lookup(user id.UserID) core.UserID {
	d.mu.Lock()
	defer d.mu.Unlock()

	if uid, ok := d.ids[user]; ok {
		return uid
	}
	d.next++
	d.ids[user] = d.next
	return d.next
}
