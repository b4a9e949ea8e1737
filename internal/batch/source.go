// Package batch runs estimates for every row of a CSV or XLSX sheet.
package batch

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// SourceOptions configure remote input downloads.
type SourceOptions struct {
	Timeout   time.Duration
	UserAgent string
}

// Fetch makes location available as a local file. Local paths are returned
// as-is; http(s) and ftp URLs are downloaded into dir. The returned cleanup
// removes any downloaded copy.
func Fetch(ctx context.Context, location, dir string, opts SourceOptions) (string, func(), error) {
	noop := func() {}
	u, err := url.Parse(location)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// Plain paths, including Windows drive letters.
		if _, statErr := os.Stat(location); statErr != nil {
			return "", noop, eris.Wrapf(statErr, "batch: open input %s", location)
		}
		return location, noop, nil
	}

	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}

	name := path.Base(u.Path)
	if name == "" || name == "/" || name == "." {
		return "", noop, eris.Errorf("batch: input url %s has no file name", location)
	}
	dest := filepath.Join(dir, name)

	var body io.ReadCloser
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		body, err = fetchHTTP(ctx, u, opts)
	case "ftp":
		body, err = fetchFTP(ctx, u, opts)
	default:
		return "", noop, eris.Errorf("batch: unsupported input scheme %q", u.Scheme)
	}
	if err != nil {
		return "", noop, err
	}
	defer func() { _ = body.Close() }()

	f, err := os.Create(dest)
	if err != nil {
		return "", noop, eris.Wrap(err, "batch: create download file")
	}
	n, err := io.Copy(f, body)
	closeErr := f.Close()
	cleanup := func() { _ = os.Remove(dest) }
	if err != nil {
		cleanup()
		return "", noop, eris.Wrap(err, "batch: download input")
	}
	if closeErr != nil {
		cleanup()
		return "", noop, eris.Wrap(closeErr, "batch: close download file")
	}

	zap.L().Info("batch: downloaded input",
		zap.String("url", u.Redacted()),
		zap.Int64("bytes", n),
	)
	return dest, cleanup, nil
}

func fetchHTTP(ctx context.Context, u *url.URL, opts SourceOptions) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "batch: build request")
	}
	if opts.UserAgent != "" {
		req.Header.Set("User-Agent", opts.UserAgent)
	}

	client := &http.Client{Timeout: opts.Timeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "batch: http get")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, eris.Errorf("batch: http get %s: status %d", u.Redacted(), resp.StatusCode)
	}
	return resp.Body, nil
}

// ftpReader closes the transfer and the control connection together.
type ftpReader struct {
	resp *ftp.Response
	conn *ftp.ServerConn
}

func (r *ftpReader) Read(p []byte) (int, error) { return r.resp.Read(p) }

func (r *ftpReader) Close() error {
	respErr := r.resp.Close()
	quitErr := r.conn.Quit()
	if respErr != nil {
		return eris.Wrap(respErr, "batch: close ftp response")
	}
	if quitErr != nil {
		return eris.Wrap(quitErr, "batch: quit ftp connection")
	}
	return nil
}

func fetchFTP(ctx context.Context, u *url.URL, opts SourceOptions) (io.ReadCloser, error) {
	host := u.Host
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, "21")
	}

	user, pass := "anonymous", "anonymous@"
	if u.User != nil {
		user = u.User.Username()
		if p, ok := u.User.Password(); ok {
			pass = p
		}
	}

	conn, err := ftp.Dial(host, ftp.DialWithTimeout(opts.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrap(err, "batch: ftp dial")
	}
	if err := conn.Login(user, pass); err != nil {
		_ = conn.Quit()
		return nil, eris.Wrap(err, "batch: ftp login")
	}
	resp, err := conn.Retr(u.Path)
	if err != nil {
		_ = conn.Quit()
		return nil, eris.Wrap(err, "batch: ftp retrieve")
	}
	return &ftpReader{resp: resp, conn: conn}, nil
}
