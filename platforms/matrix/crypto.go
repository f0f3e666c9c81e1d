package matrix

import (
	"context"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/crypto/cryptohelper"
)

// InitCrypto enables end-to-end encryption backed by a sqlite store.
// An empty dbPath leaves the client unencrypted.
func InitCrypto(ctx context.Context, client *mautrix.Client, dbPath, pickleKey string) error {
	if dbPath == "" {
		log.Warn().Msg("Crypto DB path not set. E2EE disabled.")
		return nil
	}

	pKey := []byte(pickleKey)
	if len(pKey) == 0 {
		pKey = []byte("default-pickle-key")
	}

	helper, err := cryptohelper.NewCryptoHelper(client, pKey, dbPath)
	if err != nil {
		return fmt.Errorf("failed to create crypto helper: %w", err)
	}
	if err := helper.Init(ctx); err != nil {
		return fmt.Errorf("failed to init crypto: %w", err)
	}

	client.Crypto = helper
	log.Info().Msg("🔒 End-to-End Encryption initialized")
	return nil
}
