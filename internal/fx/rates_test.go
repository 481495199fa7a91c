package fx

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/cardscout-hq/cardscout-harvester/pkg/httpclient"
)

type fxResponse struct {
	body   []byte
	status int
}

func (f fxResponse) Body() []byte         { return f.body }
func (f fxResponse) StatusCode() int      { return f.status }
func (f fxResponse) Header(string) string { return "" }

type fxClient struct {
	resp fxResponse
	err  error
	url  string
}

func (f *fxClient) Get(_ context.Context, url string, _ map[string]string) (httpclient.Response, error) {
	f.url = url
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestToGBPFallbackRates(t *testing.T) {
	conv := NewConverter(nil, Options{})

	if got := conv.ToGBP(100, "GBP"); !approx(got, 100) {
		t.Fatalf("GBP passthrough = %v", got)
	}
	if got := conv.ToGBP(10000, "JPY"); !approx(got, 53) {
		t.Fatalf("JPY conversion = %v, want 53", got)
	}
	if got := conv.ToGBP(42, "XAU"); !approx(got, 42) {
		t.Fatalf("unknown currency must pass through, got %v", got)
	}
	if got := conv.ToGBP(42, ""); !approx(got, 42) {
		t.Fatalf("empty currency must pass through, got %v", got)
	}
}

func TestRefreshInvertsGBPBaseRates(t *testing.T) {
	client := &fxClient{resp: fxResponse{
		status: 200,
		body:   []byte(`{"base":"GBP","rates":{"JPY":190.0,"USD":1.25,"EUR":1.15}}`),
	}}
	conv := NewConverter(client, Options{})

	if !conv.Refresh(context.Background(), true) {
		t.Fatalf("expected refresh to succeed")
	}
	if got := conv.ToGBP(190, "JPY"); !approx(got, 1) {
		t.Fatalf("refreshed JPY rate: 190 JPY = %v GBP, want 1", got)
	}
	if got := conv.ToGBP(1.25, "usd"); !approx(got, 1) {
		t.Fatalf("currency lookup should be case-insensitive, got %v", got)
	}
}

func TestRefreshHonorsTTL(t *testing.T) {
	client := &fxClient{resp: fxResponse{status: 200, body: []byte(`{"rates":{"JPY":190.0}}`)}}
	conv := NewConverter(client, Options{})

	if !conv.Refresh(context.Background(), true) {
		t.Fatalf("first refresh should run")
	}
	if conv.Refresh(context.Background(), false) {
		t.Fatalf("refresh within TTL should be a no-op")
	}
	if !conv.Refresh(context.Background(), true) {
		t.Fatalf("forced refresh should bypass the TTL")
	}
}

func TestRefreshFailureKeepsTable(t *testing.T) {
	conv := NewConverter(&fxClient{err: errors.New("dns")}, Options{})
	if conv.Refresh(context.Background(), true) {
		t.Fatalf("transport failure must not count as refresh")
	}
	if got := conv.ToGBP(10000, "JPY"); !approx(got, 53) {
		t.Fatalf("fallback rate lost after failed refresh: %v", got)
	}

	conv = NewConverter(&fxClient{resp: fxResponse{status: 500}}, Options{})
	if conv.Refresh(context.Background(), true) {
		t.Fatalf("non-200 must not count as refresh")
	}

	conv = NewConverter(&fxClient{resp: fxResponse{status: 200, body: []byte("not json")}}, Options{})
	if conv.Refresh(context.Background(), true) {
		t.Fatalf("bad payload must not count as refresh")
	}
	if got := conv.ToGBP(10000, "JPY"); !approx(got, 53) {
		t.Fatalf("fallback rate lost after bad payload: %v", got)
	}
}

func TestEstimateShippingGBPClamps(t *testing.T) {
	cases := []struct {
		price float64
		want  float64
	}{
		{0, 12},
		{100, 20},
		{1000, 35},
		{287.5, 35},
	}
	for _, tc := range cases {
		if got := EstimateShippingGBP(tc.price); !approx(got, tc.want) {
			t.Fatalf("EstimateShippingGBP(%v) = %v, want %v", tc.price, got, tc.want)
		}
	}
}
