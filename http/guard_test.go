package http_test

import (
	"context"
	"errors"
	"net/netip"
	"testing"

	"github.com/fwojciec/docindex"
	dochttp "github.com/fwojciec/docindex/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeResolver maps host names to addresses.
type fakeResolver map[string][]string

func (r fakeResolver) LookupNetIP(_ context.Context, _, host string) ([]netip.Addr, error) {
	raw, ok := r[host]
	if !ok {
		return nil, errors.New("no such host")
	}
	addrs := make([]netip.Addr, len(raw))
	for i, s := range raw {
		addrs[i] = netip.MustParseAddr(s)
	}
	return addrs, nil
}

func TestCheckAddr(t *testing.T) {
	t.Parallel()

	tests := []struct {
		addr    string
		blocked bool
	}{
		{"127.0.0.1", true},
		{"127.8.9.10", true},
		{"10.0.0.1", true},
		{"172.16.5.4", true},
		{"192.168.1.1", true},
		{"169.254.169.254", true},
		{"100.100.100.200", true},
		{"0.0.0.0", true},
		{"224.0.0.1", true},
		{"::1", true},
		{"::", true},
		{"fd00::1", true},
		{"fe80::1", true},
		{"::ffff:127.0.0.1", true},
		{"::ffff:10.0.0.1", true},
		{"93.184.216.34", false},
		{"8.8.8.8", false},
		{"2606:4700:4700::1111", false},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			t.Parallel()

			err := dochttp.CheckAddr(netip.MustParseAddr(tt.addr))
			if tt.blocked {
				assert.Equal(t, docindex.EBLOCKED, docindex.ErrorCode(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGuard_CheckHost(t *testing.T) {
	t.Parallel()

	guard := &dochttp.Guard{Resolver: fakeResolver{
		"docs.example.com":  {"93.184.216.34"},
		"rebind.example":    {"93.184.216.34", "127.0.0.1"},
		"internal.example":  {"192.168.0.10"},
		"empty.example.com": {},
	}}

	t.Run("allows public hosts", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, guard.CheckHost(context.Background(), "docs.example.com"))
		assert.NoError(t, guard.CheckHost(context.Background(), "8.8.8.8"))
	})

	t.Run("blocks internal names without resolving", func(t *testing.T) {
		t.Parallel()
		for _, host := range []string{"localhost", "LOCALHOST.", "app.localhost", "printer.local", "db.internal", "metadata.google.internal"} {
			assert.Equal(t, docindex.EBLOCKED, docindex.ErrorCode(guard.CheckHost(context.Background(), host)), host)
		}
	})

	t.Run("blocks IP literals", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, docindex.EBLOCKED, docindex.ErrorCode(guard.CheckHost(context.Background(), "127.0.0.1")))
		assert.Equal(t, docindex.EBLOCKED, docindex.ErrorCode(guard.CheckHost(context.Background(), "[::1]")))
	})

	t.Run("blocks when any resolved address is private", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, docindex.EBLOCKED, docindex.ErrorCode(guard.CheckHost(context.Background(), "rebind.example")))
		assert.Equal(t, docindex.EBLOCKED, docindex.ErrorCode(guard.CheckHost(context.Background(), "internal.example")))
	})

	t.Run("reports lookup failures as fetch errors", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, docindex.EFETCH, docindex.ErrorCode(guard.CheckHost(context.Background(), "missing.example")))
		assert.Equal(t, docindex.EFETCH, docindex.ErrorCode(guard.CheckHost(context.Background(), "empty.example.com")))
	})
}

func TestDialControl(t *testing.T) {
	t.Parallel()

	err := dochttp.DialControl("tcp", "127.0.0.1:80", nil)
	assert.Equal(t, docindex.EBLOCKED, docindex.ErrorCode(err))

	err = dochttp.DialControl("tcp6", "[fd00::1]:443", nil)
	assert.Equal(t, docindex.EBLOCKED, docindex.ErrorCode(err))

	require.NoError(t, dochttp.DialControl("tcp", "93.184.216.34:443", nil))
}
