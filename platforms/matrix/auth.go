package matrix

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/term"
	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/id"
)

type Config struct {
	Enabled           bool     `toml:"enabled"`
	Homeserver        string   `toml:"homeserver"`
	UserID            string   `toml:"user_id"`
	CredentialsDBPath string   `toml:"credentials_db_path"`
	CryptoDBPath      string   `toml:"crypto_db_path"`
	PickleKey         string   `toml:"pickle_key"`
	AutoJoinInvites   bool     `toml:"auto_join_invites"`
	IgnoreUsers       []string `toml:"ignore_users"`
}

// credentialStore is the on-disk session file. The access token is sealed
// with a key derived from the account password.
type credentialStore struct {
	Homeserver    string   `json:"homeserver"`
	UserID        string   `json:"user_id"`
	DeviceID      string   `json:"device_id"`
	EncryptedData []byte   `json:"encrypted_data"`
	Nonce         [24]byte `json:"nonce"`
	Salt          []byte   `json:"salt"`
}

func deriveKey(password string, salt []byte) [32]byte {
	derived := argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)

	var key [32]byte
	copy(key[:], derived)
	return key
}

func getPassword() (string, error) {
	if password := os.Getenv("MATRIX_PASSWORD"); password != "" {
		return password, nil
	}

	fmt.Print("🔑 Enter Matrix password (or set MATRIX_PASSWORD env var): ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(bytePassword), nil
}

func sealToken(token, password string) (credentialStore, error) {
	salt := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return credentialStore{}, fmt.Errorf("failed to generate salt: %w", err)
	}

	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return credentialStore{}, fmt.Errorf("failed to generate nonce: %w", err)
	}

	key := deriveKey(password, salt)
	return credentialStore{
		EncryptedData: secretbox.Seal(nil, []byte(token), &nonce, &key),
		Nonce:         nonce,
		Salt:          salt,
	}, nil
}

func openToken(store credentialStore, password string) (string, error) {
	if len(store.Salt) == 0 {
		return "", errors.New("credentials file has no salt, delete it and log in again")
	}
	key := deriveKey(password, store.Salt)
	decrypted, ok := secretbox.Open(nil, store.EncryptedData, &store.Nonce, &key)
	if !ok {
		return "", errors.New("failed to decrypt credentials - wrong password?")
	}
	return string(decrypted), nil
}

func loadCredentials(dbPath, password string) (*mautrix.Client, error) {
	data, err := os.ReadFile(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	var store credentialStore
	if err := json.Unmarshal(data, &store); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}

	token, err := openToken(store, password)
	if err != nil {
		return nil, err
	}

	client, err := mautrix.NewClient(store.Homeserver, id.UserID(store.UserID), token)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	client.DeviceID = id.DeviceID(store.DeviceID)
	return client, nil
}

func loginAndSaveCredentials(ctx context.Context, cfg *Config, password string) (*mautrix.Client, error) {
	log.Info().Str("homeserver", cfg.Homeserver).Str("user_id", cfg.UserID).Msg("Logging into Matrix")

	client, err := mautrix.NewClient(cfg.Homeserver, id.UserID(cfg.UserID), "")
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	resp, err := client.Login(ctx, &mautrix.ReqLogin{
		Type: mautrix.AuthTypePassword,
		Identifier: mautrix.UserIdentifier{
			Type: mautrix.IdentifierTypeUser,
			User: cfg.UserID,
		},
		Password: password,
	})
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	client.AccessToken = resp.AccessToken
	client.DeviceID = resp.DeviceID

	store, err := sealToken(resp.AccessToken, password)
	if err != nil {
		return nil, err
	}
	store.Homeserver = cfg.Homeserver
	store.UserID = cfg.UserID
	store.DeviceID = string(resp.DeviceID)

	data, err := json.Marshal(store)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal credentials: %w", err)
	}
	if err := os.WriteFile(cfg.CredentialsDBPath, data, 0600); err != nil {
		return nil, fmt.Errorf("failed to write credentials file: %w", err)
	}

	log.Info().Str("path", cfg.CredentialsDBPath).Msg("Credentials saved")
	return client, nil
}

// GetMatrixClient restores the saved session, or logs in with the password
// and saves a new one on first run.
func GetMatrixClient(ctx context.Context, cfg *Config) (*mautrix.Client, error) {
	password, err := getPassword()
	if err != nil {
		return nil, fmt.Errorf("failed to get password: %w", err)
	}

	var client *mautrix.Client
	if _, statErr := os.Stat(cfg.CredentialsDBPath); os.IsNotExist(statErr) {
		log.Info().Msg("First-time login detected")
		client, err = loginAndSaveCredentials(ctx, cfg, password)
	} else {
		log.Info().Msg("Loading existing session")
		client, err = loadCredentials(cfg.CredentialsDBPath, password)
	}
	if err != nil {
		return nil, err
	}

	client.Log = log.Logger.With().Str("component", "mautrix").Logger()
	return client, nil
}
