// Package iw is the Linux Wi-Fi scanner. It runs `iw dev <interface> scan`
// and converts the output into scan results with Android-style capability
// strings, so security is classified the same way for every source.
package iw

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"math"
	"os/exec"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tphakala/rfscan-go/internal/errors"
	"github.com/tphakala/rfscan-go/internal/logger"
	"github.com/tphakala/rfscan-go/internal/scanner"
)

// Runner executes a command and returns its standard output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Scanner implements scanner.WifiScanner.
type Scanner struct {
	iface string
	run   Runner
	now   func() time.Time
	log   logger.Logger

	mu   sync.Mutex
	last []scanner.WifiResult
}

// New creates a scanner for iface. run may be nil to execute iw directly.
func New(iface string, run Runner) *Scanner {
	if run == nil {
		run = execRunner
	}
	return &Scanner{
		iface: iface,
		run:   run,
		now:   time.Now,
		log:   logger.Global().Module("iw"),
	}
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil && stderr.Len() > 0 {
		return out, errors.New(err).
			Component("iw").
			Category(errors.CategoryScanner).
			Context("stderr", strings.TrimSpace(stderr.String())).
			Build()
	}
	return out, err
}

// TriggerScan runs a blocking scan and keeps its results for GetLastResults.
func (s *Scanner) TriggerScan(ctx context.Context) error {
	out, err := s.run(ctx, "iw", "dev", s.iface, "scan")
	if err != nil {
		return errors.New(err).
			Component("iw").
			Category(errors.CategoryScanner).
			Context("interface", s.iface).
			Build()
	}
	results, err := Parse(bytes.NewReader(out), s.now())
	if err != nil {
		return errors.New(err).
			Component("iw").
			Category(errors.CategoryFileParsing).
			Context("interface", s.iface).
			Build()
	}

	s.mu.Lock()
	s.last = results
	s.mu.Unlock()
	s.log.Trace("wifi scan complete", logger.Int("access_points", len(results)))
	return nil
}

// GetLastResults returns the results of the last completed scan.
func (s *Scanner) GetLastResults(context.Context) ([]scanner.WifiResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.last), nil
}

// bss accumulates one access point block.
type bss struct {
	result  scanner.WifiResult
	ess     bool
	privacy bool
	rsn     *suite
	wpa     *suite
}

type suite struct {
	auth   []string
	cipher string
}

// Parse reads `iw dev <if> scan` output. Scan ages ("last seen") are
// subtracted from now to timestamp each result.
func Parse(r io.Reader, now time.Time) ([]scanner.WifiResult, error) {
	var (
		results []scanner.WifiResult
		cur     *bss
		block   *suite // RSN or WPA element being read
	)
	flush := func() {
		if cur != nil {
			cur.result.Capabilities = cur.capabilities()
			results = append(results, cur.result)
		}
	}

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "BSS ") {
			flush()
			cur = &bss{result: scanner.WifiResult{BSSID: parseBSSID(line), Timestamp: now}}
			block = nil
			continue
		}
		if cur == nil {
			continue
		}

		depth := len(line) - len(strings.TrimLeft(line, "\t"))
		text := strings.TrimSpace(line)
		if depth == 1 {
			block = nil
		}

		switch {
		case depth == 1 && strings.HasPrefix(text, "RSN:"):
			cur.rsn = &suite{}
			block = cur.rsn
			text = strings.TrimSpace(strings.TrimPrefix(text, "RSN:"))
		case depth == 1 && strings.HasPrefix(text, "WPA:"):
			cur.wpa = &suite{}
			block = cur.wpa
			text = strings.TrimSpace(strings.TrimPrefix(text, "WPA:"))
		}

		if block != nil {
			block.parse(text)
			continue
		}
		if depth != 1 {
			continue
		}

		key, value, found := strings.Cut(text, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)
		switch key {
		case "freq":
			if f, err := strconv.ParseFloat(value, 64); err == nil {
				cur.result.Frequency = int(math.Round(f))
			}
		case "signal":
			if v, err := strconv.ParseFloat(strings.TrimSuffix(value, " dBm"), 64); err == nil {
				cur.result.Level = int(math.Round(v))
			}
		case "SSID":
			cur.result.SSID = value
		case "capability":
			fields := strings.Fields(value)
			cur.ess = slices.Contains(fields, "ESS")
			cur.privacy = slices.Contains(fields, "Privacy")
		case "last seen":
			if ms, err := strconv.Atoi(strings.TrimSuffix(value, " ms ago")); err == nil {
				cur.result.Timestamp = now.Add(-time.Duration(ms) * time.Millisecond)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	flush()
	return results, nil
}

func parseBSSID(line string) string {
	addr := strings.TrimPrefix(line, "BSS ")
	if i := strings.IndexAny(addr, "( "); i >= 0 {
		addr = addr[:i]
	}
	return strings.ToUpper(addr)
}

func (s *suite) parse(text string) {
	text = strings.TrimSpace(strings.TrimPrefix(text, "*"))
	key, value, found := strings.Cut(text, ":")
	if !found {
		return
	}
	value = strings.TrimSpace(value)
	switch key {
	case "Authentication suites":
		s.auth = strings.Fields(value)
	case "Pairwise ciphers":
		if fields := strings.Fields(value); len(fields) > 0 {
			s.cipher = strings.Join(fields, "+")
		}
	}
}

// capabilities renders the block the way Android reports it, for example
// "[WPA2-PSK-CCMP][ESS]".
func (b *bss) capabilities() string {
	var sb strings.Builder
	if b.rsn != nil {
		sb.WriteString(b.rsn.render("WPA2"))
	}
	if b.wpa != nil {
		sb.WriteString(b.wpa.render("WPA"))
	}
	if b.privacy && b.rsn == nil && b.wpa == nil {
		sb.WriteString("[WEP]")
	}
	if b.ess {
		sb.WriteString("[ESS]")
	}
	return sb.String()
}

func (s *suite) render(proto string) string {
	auth := "PSK"
	switch {
	case slices.Contains(s.auth, "SAE"):
		proto, auth = "WPA3", "SAE"
	case slices.ContainsFunc(s.auth, func(a string) bool { return strings.Contains(a, "802.1X") }):
		auth = "EAP"
	}
	cipher := s.cipher
	if cipher == "" {
		cipher = "CCMP"
	}
	return "[" + proto + "-" + auth + "-" + cipher + "]"
}
