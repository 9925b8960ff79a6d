package kraken

import (
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "kQH5HW/8p1uGOVjbgWA7FunAmGO8lsSUXNsu3eow76sz84Q18fWxnyRzBHCd3pd5nE9qa99HAZtuZuj6F1huXg=="

// Published exchange example for AddOrder.
func TestSignKnownVector(t *testing.T) {
	form := url.Values{}
	form.Set("nonce", "1616492376594")
	form.Set("ordertype", "limit")
	form.Set("pair", "XBTUSD")
	form.Set("price", "37500")
	form.Set("type", "buy")
	form.Set("volume", "1.25")

	sig, err := Sign("/0/private/AddOrder", form, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "4/dpxb3iT4tp/ZCVEwSnEsLxx0bqyhLpdfOpc6fn7OR8+UClSV5n9E6aSS8MPtnRfp32bAb0nmbRn6H8ndwLUQ==", sig)
}

func TestSignDeterministicAndSensitive(t *testing.T) {
	base := func() url.Values {
		return url.Values{"nonce": {"1700000000000"}, "asset": {"XBT"}}
	}
	signer, err := NewSigner(testSecret)
	require.NoError(t, err)

	ref := signer.Sign("/0/private/Balance", base())
	assert.Equal(t, ref, signer.Sign("/0/private/Balance", base()), "same input must sign identically")

	tests := []struct {
		name string
		path string
		form func() url.Values
	}{
		{"path", "/0/private/TradeBalance", base},
		{"nonce", "/0/private/Balance", func() url.Values {
			f := base()
			f.Set("nonce", "1700000000001")
			return f
		}},
		{"form value", "/0/private/Balance", func() url.Values {
			f := base()
			f.Set("asset", "ETH")
			return f
		}},
		{"extra field", "/0/private/Balance", func() url.Values {
			f := base()
			f.Set("otp", "123456")
			return f
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, ref, signer.Sign(tt.path, tt.form()))
		})
	}
}

func TestSignRejectsMalformedSecret(t *testing.T) {
	_, err := Sign("/0/private/Balance", url.Values{"nonce": {"1"}}, "not base64!!")
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr), "expected ConfigError, got %v", err)
	assert.Equal(t, "api secret", cfgErr.Field)
}

func TestCredentialRedacted(t *testing.T) {
	cred := Credential{APIKey: "key-123", APISecret: testSecret}
	assert.NotContains(t, cred.String(), "key-123")
	assert.NotContains(t, cred.GoString(), testSecret)
	assert.False(t, cred.Empty())
	assert.True(t, Credential{APIKey: "k"}.Empty())
}

func TestNonceSourceMonotonic(t *testing.T) {
	fixed := time.UnixMilli(1_700_000_000_000)
	clock := fixed
	n := &NonceSource{now: func() time.Time { return clock }}

	first := n.Next()
	assert.Equal(t, fixed.UnixMilli(), first)

	// Same millisecond: counter fallback.
	assert.Equal(t, first+1, n.Next())
	assert.Equal(t, first+2, n.Next())

	// Clock steps backwards.
	clock = fixed.Add(-time.Second)
	assert.Equal(t, first+3, n.Next())

	// Clock jumps ahead past the counter.
	clock = fixed.Add(time.Second)
	assert.Equal(t, fixed.Add(time.Second).UnixMilli(), n.Next())
	assert.Equal(t, fixed.Add(time.Second).UnixMilli()+1, n.Next())
}
