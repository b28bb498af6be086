package allowance

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/Dev72112/xlamaexchange/internal/model"

	xerr "github.com/Dev72112/xlamaexchange/internal/errors"
)

const (
	tokenAddr   = "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"
	ownerAddr   = "0x0000000000000000000000000000000000000011"
	spenderAddr = "0x0000000000000000000000000000000000000022"
)

type fixedReader struct {
	allowance *big.Int
	err       error
}

func (f *fixedReader) Allowance(ctx context.Context, chainID int64, token, owner, spender string) (*big.Int, error) {
	return f.allowance, f.err
}

func usdc() model.Token {
	return model.Token{Address: tokenAddr, Symbol: "USDC", Decimals: 6}
}

func TestNeedsApprovalStrictlyLess(t *testing.T) {
	mgr := NewManager(&fixedReader{allowance: big.NewInt(1_000_000)}) // 1.0 USDC

	needed, err := mgr.NeedsApproval(context.Background(), 8453, usdc(), ownerAddr, spenderAddr, "2000000")
	if err != nil {
		t.Fatalf("needs approval: %v", err)
	}
	if !needed {
		t.Fatal("allowance 1.0 < required 2.0 must need approval")
	}

	needed, err = mgr.NeedsApproval(context.Background(), 8453, usdc(), ownerAddr, spenderAddr, "1000000")
	if err != nil {
		t.Fatalf("needs approval: %v", err)
	}
	if needed {
		t.Fatal("allowance equal to required must not need approval")
	}
}

func TestBuildApprovalExact(t *testing.T) {
	payload, err := BuildApproval(8453, spenderAddr, model.AllowanceRequest{
		Token:          usdc(),
		RequiredAmount: "2.0",
		Type:           model.ApprovalExact,
	})
	if err != nil {
		t.Fatalf("build approval: %v", err)
	}
	if payload.To != tokenAddr {
		t.Fatalf("approval targets the token contract, got %s", payload.To)
	}
	if payload.Value != "0" {
		t.Fatalf("approval carries no native value, got %s", payload.Value)
	}
	// approve selector
	if !strings.HasPrefix(payload.Data, "0x095ea7b3") {
		t.Fatalf("expected approve calldata, got %s", payload.Data[:10])
	}
}

func TestBuildApprovalUnlimitedIsIdempotent(t *testing.T) {
	req := model.AllowanceRequest{Token: usdc(), RequiredAmount: "2.0", Type: model.ApprovalUnlimited}
	a, err := BuildApproval(8453, spenderAddr, req)
	if err != nil {
		t.Fatalf("build approval: %v", err)
	}
	b, err := BuildApproval(8453, spenderAddr, req)
	if err != nil {
		t.Fatalf("build approval: %v", err)
	}
	if a != b {
		t.Fatalf("unlimited approvals must be byte-identical: %+v vs %+v", a, b)
	}
	// uint256 max ends in ...ffff in the calldata
	if !strings.HasSuffix(a.Data, strings.Repeat("f", 64)) {
		t.Fatal("unlimited approval must encode the max uint256 amount")
	}
}

func TestBuildApprovalCustom(t *testing.T) {
	payload, err := BuildApproval(8453, spenderAddr, model.AllowanceRequest{
		Token:          usdc(),
		RequiredAmount: "2.0",
		Type:           model.ApprovalCustom,
		CustomAmount:   "5.5",
	})
	if err != nil {
		t.Fatalf("build approval: %v", err)
	}
	// 5.5 USDC = 5500000 = 0x53ec60
	if !strings.HasSuffix(payload.Data, "53ec60") {
		t.Fatalf("expected custom amount in calldata, got %s", payload.Data)
	}

	_, err = BuildApproval(8453, spenderAddr, model.AllowanceRequest{
		Token: usdc(), Type: model.ApprovalCustom,
	})
	if err == nil {
		t.Fatal("custom approval without amount must fail")
	}
}

func TestBuildApprovalFailsClosedOnUnknownDecimals(t *testing.T) {
	opaque := model.Token{Address: tokenAddr, Symbol: "???", Decimals: -1}
	_, err := BuildApproval(8453, spenderAddr, model.AllowanceRequest{
		Token: opaque, RequiredAmount: "1", Type: model.ApprovalUnlimited,
	})
	if xerr.CodeOf(err) != xerr.CodeUsage {
		t.Fatalf("expected refusal for unresolved decimals, got %v", err)
	}
}

func TestBuildApprovalRejectsBadAddresses(t *testing.T) {
	if _, err := BuildApproval(8453, "not-an-address", model.AllowanceRequest{Token: usdc(), RequiredAmount: "1", Type: model.ApprovalExact}); err == nil {
		t.Fatal("invalid spender must fail")
	}
	bad := model.Token{Address: "0x12", Symbol: "X", Decimals: 18}
	if _, err := BuildApproval(8453, spenderAddr, model.AllowanceRequest{Token: bad, RequiredAmount: "1", Type: model.ApprovalExact}); err == nil {
		t.Fatal("invalid token address must fail")
	}
}
