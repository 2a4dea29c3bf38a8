package simulation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/okian/elorank/internal/adapters/http/api"
	"github.com/okian/elorank/internal/adapters/persistence"
	"github.com/okian/elorank/internal/adapters/source"
	service "github.com/okian/elorank/internal/app"
	"github.com/okian/elorank/internal/domain/elo"
	"github.com/okian/elorank/internal/domain/model"
	"github.com/okian/elorank/internal/domain/scheduler"
	"github.com/okian/elorank/internal/domain/types"
	"github.com/okian/elorank/pkg/logger"
)

// Driver is how the simulated voter reaches a session.
type Driver interface {
	Pair(ctx context.Context) (model.ItemView, model.ItemView, error)
	Vote(ctx context.Context, shown model.Pair, winner int) error
	Standings(ctx context.Context, n int) ([]types.Entry, error)
	Close() error
}

// openSession wires a session over dir the way the CLI does.
func openSession(ctx context.Context, cfg Config, dir string) (*service.Session, *persistence.WorkArea, error) {
	layout, err := source.Resolve(dir, source.DefaultWorkDirName)
	if err != nil {
		return nil, nil, err
	}
	area, err := persistence.Open(ctx, layout.WorkArea, persistence.WithExactRatings(cfg.Exact, ""))
	if err != nil {
		return nil, nil, err
	}

	sched := scheduler.New(
		scheduler.WithSeed(cfg.Seed),
		scheduler.WithMaxRepeatRetries(cfg.Retries),
		scheduler.WithRepeatPolicy(scheduler.RepeatPolicy(cfg.Policy)),
	)
	session := service.NewSession(area, source.NewDirProvider(layout.Source),
		service.WithScheduler(sched),
		service.WithRater(elo.New(elo.WithK(cfg.KFactor))),
	)
	if err := session.Start(ctx); err != nil {
		_ = area.Close()
		return nil, nil, err
	}
	return session, area, nil
}

func openDriver(ctx context.Context, cfg Config, dir string) (Driver, error) {
	session, area, err := openSession(ctx, cfg, dir)
	if err != nil {
		return nil, err
	}
	switch cfg.Driver {
	case DriverHTTP:
		d, err := newHTTPDriver(ctx, session, cfg)
		if err != nil {
			_ = area.Close()
			return nil, err
		}
		d.area = area
		return d, nil
	default:
		return &sessionDriver{session: session, area: area}, nil
	}
}

// sessionDriver calls the session directly.
type sessionDriver struct {
	session *service.Session
	area    *persistence.WorkArea
}

func (d *sessionDriver) Pair(ctx context.Context) (model.ItemView, model.ItemView, error) {
	return d.session.CurrentPair(ctx)
}

func (d *sessionDriver) Vote(ctx context.Context, shown model.Pair, winner int) error {
	_, err := d.session.VoteOn(ctx, shown, winner)
	return err
}

func (d *sessionDriver) Standings(ctx context.Context, n int) ([]types.Entry, error) {
	return d.session.Standings(ctx, n)
}

func (d *sessionDriver) Close() error { return d.area.Close() }

// httpDriver serves the session on a loopback listener and votes through the
// public API, exercising the queue, dispatcher and vote-id deduplication.
type httpDriver struct {
	client *http.Client
	base   string
	svc    *service.Service
	srv    *http.Server
	area   *persistence.WorkArea
	done   chan struct{}
}

func newHTTPDriver(ctx context.Context, session *service.Session, cfg Config) (*httpDriver, error) {
	svc := service.New(session)
	if err := svc.Start(ctx); err != nil {
		return nil, err
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		svc.Stop()
		return nil, fmt.Errorf("listen: %w", err)
	}

	mux := http.NewServeMux()
	api.NewServer(svc, cfg.Items).Register(ctx, mux)

	d := &httpDriver{
		client: &http.Client{Timeout: cfg.Timeout},
		base:   "http://" + ln.Addr().String(),
		svc:    svc,
		srv:    &http.Server{Handler: mux, ReadHeaderTimeout: cfg.Timeout},
		done:   make(chan struct{}),
	}
	go func() {
		defer close(d.done)
		if err := d.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Get().Error(ctx, "simulation server failed", logger.Error(err))
		}
	}()
	return d, nil
}

type pairBody struct {
	Left  model.ItemView `json:"left"`
	Right model.ItemView `json:"right"`
}

func (d *httpDriver) Pair(ctx context.Context) (model.ItemView, model.ItemView, error) {
	var p pairBody
	if err := d.do(ctx, http.MethodGet, "/pair", nil, &p); err != nil {
		return model.ItemView{}, model.ItemView{}, err
	}
	return p.Left, p.Right, nil
}

func (d *httpDriver) Vote(ctx context.Context, shown model.Pair, winner int) error {
	body := map[string]interface{}{
		"vote_id": uuid.NewString(),
		"winner":  winner,
		"left":    shown[0],
		"right":   shown[1],
	}
	return d.do(ctx, http.MethodPost, "/vote", body, nil)
}

func (d *httpDriver) Standings(ctx context.Context, n int) ([]types.Entry, error) {
	var out []types.Entry
	err := d.do(ctx, http.MethodGet, "/leaderboard?limit="+strconv.Itoa(n), nil, &out)
	return out, err
}

func (d *httpDriver) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := d.srv.Shutdown(ctx)
	<-d.done
	d.svc.Stop()
	return errors.Join(err, d.area.Close())
}

// do sends a JSON request and decodes a JSON response into out. Any status
// other than 200 is returned as ErrVoteRejected with the server's message.
func (d *httpDriver) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, d.base+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s %s: %d %s", ErrVoteRejected, method, path, resp.StatusCode, bytes.TrimSpace(data))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}
