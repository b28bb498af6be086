package quote

import (
	"context"
	"fmt"
	"math/big"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Dev72112/xlamaexchange/internal/httpx"
	"github.com/Dev72112/xlamaexchange/internal/model"
	"github.com/Dev72112/xlamaexchange/internal/registry"

	xerr "github.com/Dev72112/xlamaexchange/internal/errors"
)

// Client fetches routes from the aggregator's HTTP API.
type Client struct {
	http      *httpx.Client
	baseURL   string
	statusURL string
	now       func() time.Time
}

func NewClient(httpClient *httpx.Client) *Client {
	return &Client{
		http:      httpClient,
		baseURL:   registry.AggregatorBaseURL,
		statusURL: registry.AggregatorStatusURL,
		now:       time.Now,
	}
}

type quoteResponse struct {
	ID       string `json:"id"`
	Estimate struct {
		ToAmount          string `json:"toAmount"`
		ToAmountMin       string `json:"toAmountMin"`
		ApprovalAddress   string `json:"approvalAddress"`
		ExecutionDuration int64  `json:"executionDuration"`
		FeeCosts          []struct {
			AmountUSD string `json:"amountUSD"`
		} `json:"feeCosts"`
		GasCosts []struct {
			AmountUSD string `json:"amountUSD"`
		} `json:"gasCosts"`
	} `json:"estimate"`
	ToolDetails struct {
		Key  string `json:"key"`
		Name string `json:"name"`
	} `json:"toolDetails"`
	Tool string `json:"tool"`
	// Set by the aggregator when the route wants an explicit approval
	// confirmation surfaced to the user before any wallet prompt.
	ApprovalConfirmationRequired bool `json:"approvalConfirmationRequired"`
	TransactionRequest           struct {
		To      string `json:"to"`
		From    string `json:"from"`
		Data    string `json:"data"`
		Value   string `json:"value"`
		ChainID int64  `json:"chainId"`
	} `json:"transactionRequest"`
}

func (c *Client) GetRoute(ctx context.Context, req Request) (model.Route, error) {
	sender := strings.TrimSpace(req.Sender)
	if sender == "" || !common.IsHexAddress(sender) {
		return model.Route{}, xerr.New(xerr.CodeUsage, "route request requires a valid sender address")
	}
	recipient := strings.TrimSpace(req.Recipient)
	if recipient == "" {
		recipient = sender
	}
	if _, err := strconv.ParseInt(req.AmountBaseUnits, 10, 64); err != nil {
		if _, ok := new(big.Int).SetString(req.AmountBaseUnits, 10); !ok {
			return model.Route{}, xerr.New(xerr.CodeUsage, "route request amount must be a base-unit integer")
		}
	}
	slippage := req.SlippagePct
	if slippage <= 0 {
		slippage = 0.5
	}

	vals := url.Values{}
	vals.Set("fromChain", strconv.FormatInt(req.FromChainID, 10))
	vals.Set("toChain", strconv.FormatInt(req.ToChainID, 10))
	vals.Set("fromToken", strings.ToLower(req.FromToken.Address))
	vals.Set("toToken", strings.ToLower(req.ToToken.Address))
	vals.Set("fromAmount", req.AmountBaseUnits)
	vals.Set("slippage", strconv.FormatFloat(slippage/100, 'f', 6, 64))
	vals.Set("fromAddress", sender)
	vals.Set("toAddress", recipient)

	var resp quoteResponse
	if _, err := c.http.GetJSON(ctx, c.baseURL+"/quote?"+vals.Encode(), &resp); err != nil {
		return model.Route{}, err
	}
	if strings.TrimSpace(resp.Estimate.ToAmount) == "" {
		return model.Route{}, xerr.New(xerr.CodeRouteUnavailable, "aggregator returned no route for this pair")
	}
	if strings.TrimSpace(resp.TransactionRequest.To) == "" || strings.TrimSpace(resp.TransactionRequest.Data) == "" {
		return model.Route{}, xerr.New(xerr.CodeRouteUnavailable, "aggregator route is missing an executable transaction payload")
	}
	if resp.TransactionRequest.ChainID != 0 && resp.TransactionRequest.ChainID != req.FromChainID {
		return model.Route{}, xerr.New(xerr.CodeRouteUnavailable, "route transaction chain does not match source chain")
	}

	value, err := hexToDecimal(resp.TransactionRequest.Value)
	if err != nil {
		return model.Route{}, xerr.Wrap(xerr.CodeRouteUnavailable, "parse route transaction value", err)
	}

	feeUSD := 0.0
	for _, item := range resp.Estimate.FeeCosts {
		v, _ := strconv.ParseFloat(item.AmountUSD, 64)
		feeUSD += v
	}
	for _, item := range resp.Estimate.GasCosts {
		v, _ := strconv.ParseFloat(item.AmountUSD, 64)
		feeUSD += v
	}

	provider := firstNonEmpty(resp.ToolDetails.Name, resp.Tool)
	if provider == "" {
		provider = fmt.Sprintf("%d->%d", req.FromChainID, req.ToChainID)
	}

	return model.Route{
		RouteID:                   resp.ID,
		Provider:                  provider,
		FromChainID:               req.FromChainID,
		ToChainID:                 req.ToChainID,
		InputAmount:               req.AmountBaseUnits,
		OutputAmount:              resp.Estimate.ToAmount,
		OutputAmountMin:           firstNonEmpty(resp.Estimate.ToAmountMin, resp.Estimate.ToAmount),
		FeeUSD:                    feeUSD,
		EstimatedTimeSeconds:      resp.Estimate.ExecutionDuration,
		ApprovalSpender:           strings.TrimSpace(resp.Estimate.ApprovalAddress),
		NeedsApprovalConfirmation: resp.ApprovalConfirmationRequired,
		Tx: model.TxPayload{
			ChainID: req.FromChainID,
			To:      common.HexToAddress(resp.TransactionRequest.To).Hex(),
			Data:    ensureHexPrefix(resp.TransactionRequest.Data),
			Value:   value,
		},
		FetchedAt: c.now().UTC(),
	}, nil
}

type statusResponse struct {
	Status    string `json:"status"`
	Substatus string `json:"substatus"`
	Receiving struct {
		TxHash string `json:"txHash"`
		Amount string `json:"amount"`
	} `json:"receiving"`
	SubstatusMessage string `json:"substatusMessage"`
}

func (c *Client) RouteStatus(ctx context.Context, routeID string) (model.RouteStatus, error) {
	if strings.TrimSpace(routeID) == "" {
		return model.RouteStatus{}, xerr.New(xerr.CodeUsage, "route status requires a route id")
	}
	vals := url.Values{}
	vals.Set("routeId", strings.TrimSpace(routeID))

	var resp statusResponse
	if _, err := c.http.GetJSON(ctx, c.statusURL+"?"+vals.Encode(), &resp); err != nil {
		return model.RouteStatus{}, err
	}

	switch strings.ToUpper(strings.TrimSpace(resp.Status)) {
	case "DONE":
		return model.RouteStatus{
			State:      model.RouteStateCompleted,
			DestTxHash: resp.Receiving.TxHash,
			ToAmount:   resp.Receiving.Amount,
		}, nil
	case "FAILED":
		reason := firstNonEmpty(resp.SubstatusMessage, resp.Substatus, "bridge route failed")
		return model.RouteStatus{State: model.RouteStateFailed, Reason: reason}, nil
	default:
		return model.RouteStatus{State: model.RouteStatePending}, nil
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func ensureHexPrefix(v string) string {
	clean := strings.TrimSpace(v)
	if strings.HasPrefix(clean, "0x") || strings.HasPrefix(clean, "0X") {
		return clean
	}
	return "0x" + clean
}

func hexToDecimal(v string) (string, error) {
	clean := strings.TrimSpace(v)
	if clean == "" {
		return "0", nil
	}
	if !strings.HasPrefix(clean, "0x") && !strings.HasPrefix(clean, "0X") {
		// already decimal
		if _, ok := new(big.Int).SetString(clean, 10); !ok {
			return "", fmt.Errorf("invalid value %q", v)
		}
		return clean, nil
	}
	n := new(big.Int)
	if _, ok := n.SetString(clean[2:], 16); !ok {
		return "", fmt.Errorf("invalid hex value %q", v)
	}
	return n.String(), nil
}
