package cli

import (
	"testing"

	"github.com/Dev72112/xlamaexchange/internal/model"

	xerr "github.com/Dev72112/xlamaexchange/internal/errors"
)

func TestParseToken(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		want    model.Token
		wantErr bool
	}{
		{
			name:  "full",
			input: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48:usdc:6",
			want:  model.Token{Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Symbol: "USDC", Decimals: 6},
		},
		{
			name:  "decimals omitted",
			input: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2:WETH",
			want:  model.Token{Address: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", Symbol: "WETH", Decimals: -1},
		},
		{name: "address only", input: "0xabc", wantErr: true},
		{name: "decimals out of range", input: "0xabc:TOK:40", wantErr: true},
		{name: "negative decimals", input: "0xabc:TOK:-1", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseToken(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				if xerr.CodeOf(err) != xerr.CodeUsage {
					t.Fatalf("code = %d, want usage", xerr.CodeOf(err))
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Fatalf("parseToken(%q) = %+v, want %+v", tc.input, got, tc.want)
			}
		})
	}
}

func TestParseApprovalType(t *testing.T) {
	cases := map[string]model.ApprovalType{
		"":          model.ApprovalExact,
		"exact":     model.ApprovalExact,
		"Unlimited": model.ApprovalUnlimited,
		"custom":    model.ApprovalCustom,
	}
	for input, want := range cases {
		got, err := parseApprovalType(input)
		if err != nil {
			t.Fatalf("parseApprovalType(%q): %v", input, err)
		}
		if got != want {
			t.Fatalf("parseApprovalType(%q) = %q, want %q", input, got, want)
		}
	}
	if _, err := parseApprovalType("infinite"); err == nil {
		t.Fatal("expected error for unknown approval type")
	}
}

func TestResolveChainID(t *testing.T) {
	if id, err := resolveChainID("arbitrum"); err != nil || id != 42161 {
		t.Fatalf("slug: id=%d err=%v", id, err)
	}
	if id, err := resolveChainID("8453"); err != nil || id != 8453 {
		t.Fatalf("numeric: id=%d err=%v", id, err)
	}
	if _, err := resolveChainID("notachain"); err == nil {
		t.Fatal("expected error for unknown chain")
	}
}

func TestExplorerLinkFallsBackToHash(t *testing.T) {
	if got := explorerLink(999999, "0xdead"); got != "0xdead" {
		t.Fatalf("unknown chain link = %q", got)
	}
	if got := explorerLink(1, "0xdead"); got == "0xdead" {
		t.Fatal("known chain should produce an explorer URL")
	}
}
