package matrix

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"maunium.net/go/mautrix/id"

	"aide/core"
)

func TestUserDirectory_StableIDs(t *testing.T) {
	dir := newUserDirectory()

	alice := dir.lookup("@alice:example.org")
	bob := dir.lookup("@bob:example.org")

	assert.NotEqual(t, alice, bob)
	assert.Equal(t, alice, dir.lookup("@alice:example.org"))
}

func TestUserDirectory_Concurrent(t *testing.T) {
	dir := newUserDirectory()
	users := []id.UserID{"@a:hs", "@b:hs", "@c:hs", "@d:hs"}

	var wg sync.WaitGroup
	seen := make([]core.UserID, 64)
	for i := range seen {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			seen[i] = dir.lookup(users[i%len(users)])
		}(i)
	}
	wg.Wait()

	for i, uid := range seen {
		assert.Equal(t, seen[i%len(users)], uid)
	}
	assert.Len(t, dir.ids, len(users))
}

func TestSealOpenToken(t *testing.T) {
	store, err := sealToken("syt_secret_token", "hunter2")
	require.NoError(t, err)
	assert.NotContains(t, string(store.EncryptedData), "syt_secret_token")

	token, err := openToken(store, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "syt_secret_token", token)

	_, err = openToken(store, "wrong")
	assert.ErrorContains(t, err, "wrong password")

	store.Salt = nil
	_, err = openToken(store, "hunter2")
	assert.Error(t, err)
}
