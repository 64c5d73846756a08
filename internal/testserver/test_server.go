package testserver

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"toolgate/internal/domain/checklist"
	"toolgate/internal/domain/proposal"
	"toolgate/internal/domain/registry"
	"toolgate/internal/domain/roadmap"
	"toolgate/internal/domain/session"
	"toolgate/internal/mcp"
	"toolgate/internal/sqlite"
	"toolgate/internal/teleport"
	"toolgate/internal/transport"
)

type TestServer struct {
	Server      *httptest.Server
	DB          *sqlite.DB
	Token       string
	PrincipalID string
	SessionsDir string
}

func New(t *testing.T, token, principalID string) *TestServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	rules, err := checklist.LoadBuiltin()
	require.NoError(t, err)
	engine, err := checklist.NewEngine(rules)
	require.NoError(t, err)

	sessionsDir := t.TempDir()
	proposalSvc := proposal.NewService(engine, sqlite.NewProposalStore(db), logger)
	sessionSvc := session.NewService(sessionsDir, logger)
	registrySvc := registry.NewService(sqlite.NewManifestStore(db), proposalSvc, logger,
		registry.WithNoteRecorder(sessionSvc))
	roadmapSvc := roadmap.NewService(logger)

	// Point tsh at a path that never exists so platform tools report the
	// missing binary instead of shelling out.
	tsh := teleport.NewClient(teleport.ExecRunner{}, teleport.Config{
		TshPath:   filepath.Join(t.TempDir(), "tsh"),
		ProxyAddr: "teleport.example.com",
		Clusters:  []string{"staging"},
	}, logger)

	handler := mcp.NewHandler(mcp.Services{
		Proposals: proposalSvc,
		Registry:  registrySvc,
		Roadmap:   roadmapSvc,
		Sessions:  sessionSvc,
		Platform:  tsh,
	})

	resolver := &apiKeyResolver{db: db}
	server := httptest.NewServer(transport.NewServer(handler, transport.AuthMiddleware(resolver)))

	ts := &TestServer{
		Server:      server,
		DB:          db,
		Token:       token,
		PrincipalID: principalID,
		SessionsDir: sessionsDir,
	}

	require.NoError(t, ts.AddAPIKey(token, principalID))

	t.Cleanup(func() {
		server.Close()
		_ = db.Close()
	})

	return ts
}

func (ts *TestServer) AddAPIKey(token, principalID string) error {
	hash := hashToken(token)
	_, err := ts.DB.Exec(
		`INSERT INTO api_keys (key_hash, principal, created_at) VALUES (?, ?, ?)`,
		hash, principalID, time.Now(),
	)
	return err
}

type apiKeyResolver struct {
	db *sqlite.DB
}

func (r *apiKeyResolver) ResolvePrincipal(ctx context.Context, token string) (string, error) {
	hash := hashToken(token)
	var principal string
	err := r.db.QueryRowContext(ctx, `SELECT principal FROM api_keys WHERE key_hash = ?`, hash).Scan(&principal)
	if err != nil || principal == "" {
		return "", transport.ErrUnauthorized
	}
	return principal, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
