// Package db provides the managed MySQL access layer for the agent:
// connection lifecycle, read/write execution with CSV-normalized results,
// fuzzy value lookup and schema reflection.
//
// The handler executes caller-supplied SQL text verbatim, including the
// identifiers interpolated by FuzzyFind. All statement and identifier inputs
// are part of a trusted-input contract: they must originate from an operator,
// the reflected schema, or another vetted source, never directly from an
// untrusted end user.
package db

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	_ "github.com/go-sql-driver/mysql"
)

const (
	// scheme is the canonical tag a connection URI must carry.
	scheme = "mysql"
	// defaultPort is substituted only on the URI path when none is given.
	defaultPort = "3306"
)

// Handler owns a lazily established connection pool and the credentials used
// to (re)build it. The pool field is plain mutable state shared across calls:
// concurrent Connect/Disconnect against one Handler must be serialized by the
// caller, while the query operations are as safe as *sql.DB itself — this
// layer adds no locking of its own.
type Handler struct {
	Host     string
	User     string
	Password string
	Database string
	// Port is optional. When empty, the discrete-credentials path emits no
	// port segment at all and the driver's default applies.
	Port string

	engine *sql.DB
}

// New returns a Handler that will connect with the given discrete
// credentials on the first operation that needs a pool.
func New(host, user, password, database, port string) *Handler {
	return &Handler{
		Host:     host,
		User:     user,
		Password: password,
		Database: database,
		Port:     port,
	}
}

// NewFromDB wraps a pool the surrounding application already manages.
// Database names the schema namespace used for reflection. Disconnect will
// close the supplied pool.
func NewFromDB(pool *sql.DB, database string) *Handler {
	return &Handler{Database: database, engine: pool}
}

// Connect establishes the connection pool and verifies it with a probe
// query, so deferred driver failures surface here instead of on the first
// real statement. An empty connectionString selects the discrete-credentials
// path; otherwise connectionString must be a mysql:// URI. Reconnecting
// replaces a live pool rather than layering one over it.
func (h *Handler) Connect(connectionString string) error {
	target := connectionString
	if target == "" {
		target = h.targetURI()
	}

	dsn, err := dsnFromURI(target, connectionString != "")
	if err != nil {
		return err
	}

	pool, err := sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	if err := probe(pool); err != nil {
		pool.Close()
		return fmt.Errorf("%w: probe failed: %v", ErrConnection, err)
	}

	if h.engine != nil {
		h.engine.Close()
	}
	h.engine = pool
	slog.Info("database connection established", "database", h.Database)
	return nil
}

// Disconnect releases the pool and returns the handler to the disconnected
// state. Calling it while already disconnected is a no-op.
func (h *Handler) Disconnect() {
	if h.engine == nil {
		return
	}
	if err := h.engine.Close(); err != nil {
		slog.Warn("closing connection pool", "error", err)
	}
	h.engine = nil
	slog.Info("database connection pool disposed")
}

// Engine exposes the live pool, or nil when disconnected. The export
// subsystem streams large results through it directly.
func (h *Handler) Engine() *sql.DB {
	return h.engine
}

// targetURI renders the discrete credentials as a connection URI. The port
// segment is omitted entirely when no port is configured; no default is
// emitted on this path.
func (h *Handler) targetURI() string {
	hostPort := h.Host
	if h.Port != "" {
		hostPort += ":" + h.Port
	}
	return fmt.Sprintf("%s://%s:%s@%s/%s", scheme, h.User, h.Password, hostPort, h.Database)
}

// dsnFromURI validates a connection URI and translates it into the
// go-sql-driver DSN form. Scheme mismatch fails before any network activity.
// The default port is substituted only for caller-supplied URIs.
func dsnFromURI(target string, applyDefaultPort bool) (string, error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	if u.Scheme != scheme {
		return "", fmt.Errorf("%w: invalid scheme %q, use %q", ErrConfiguration, u.Scheme, scheme+"://")
	}

	hostPort := u.Host
	if applyDefaultPort && u.Port() == "" {
		hostPort += ":" + defaultPort
	}

	password, _ := u.User.Password()
	database := strings.TrimPrefix(u.Path, "/")
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true",
		u.User.Username(), password, hostPort, database), nil
}

// probe runs the trivial statement used to confirm the target is reachable.
func probe(pool *sql.DB) error {
	var one int
	return pool.QueryRow("SELECT 1").Scan(&one)
}

// ensureEngine performs the implicit reconnect from the stored discrete
// credentials. A reconnect failure is logged, not returned: the caller only
// cares whether a pool exists afterwards.
func (h *Handler) ensureEngine() error {
	if h.engine == nil {
		if err := h.Connect(""); err != nil {
			slog.Error("implicit reconnect failed", "error", err)
		}
	}
	if h.engine == nil {
		return fmt.Errorf("%w: %s", ErrConnection, msgNoEngine)
	}
	return nil
}
