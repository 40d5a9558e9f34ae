package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Source is the pull interface the control loop consumes once per cycle.
// An error is treated the same as an empty candidate list downstream.
type Source interface {
	Discover(ctx context.Context) ([]string, error)
}

// MeshSource lists the online peers of the local mesh daemon whose names
// carry the configured prefix. With keepPrefix false the prefix is stripped
// from the returned hostnames.
type MeshSource struct {
	apiURL     string
	namePrefix string
	keepPrefix bool
	client     *http.Client
	logger     *slog.Logger
}

type meshPeer struct {
	Name   string `json:"name"`
	Online bool   `json:"online"`
}

type meshPeersResponse struct {
	Peers []meshPeer `json:"peers"`
}

// NewMeshSource creates a Source backed by the mesh daemon API at apiURL.
func NewMeshSource(apiURL, namePrefix string, keepPrefix bool, timeout time.Duration, logger *slog.Logger) *MeshSource {
	return &MeshSource{
		apiURL:     strings.TrimRight(apiURL, "/"),
		namePrefix: namePrefix,
		keepPrefix: keepPrefix,
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Discover returns the names of online peers matching the prefix.
func (m *MeshSource) Discover(ctx context.Context) ([]string, error) {
	url := m.apiURL + "/v0/peers"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building mesh API request: %w", err)
	}

	res, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("querying mesh API: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mesh API returned status %d", res.StatusCode)
	}

	var payload meshPeersResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding mesh API response: %w", err)
	}

	var names []string
	for _, peer := range payload.Peers {
		if !peer.Online {
			continue
		}
		if m.namePrefix != "" && !strings.HasPrefix(peer.Name, m.namePrefix) {
			continue
		}
		name := peer.Name
		if !m.keepPrefix {
			name = strings.TrimPrefix(name, m.namePrefix)
		}
		names = append(names, name)
	}

	m.logger.Debug("Discovered mesh peers",
		slog.Int("total", len(payload.Peers)),
		slog.Int("matching", len(names)))

	return names, nil
}

// StaticSource serves a fixed target list. Used by the single and multi
// modes, where the backend set is operator-supplied rather than discovered.
type StaticSource struct {
	targets []string
}

// NewStaticSource creates a Source returning the given hostnames verbatim.
func NewStaticSource(targets []string) *StaticSource {
	return &StaticSource{targets: targets}
}

// Discover returns a copy of the configured target list.
func (s *StaticSource) Discover(ctx context.Context) ([]string, error) {
	out := make([]string, len(s.targets))
	copy(out, s.targets)
	return out, nil
}
