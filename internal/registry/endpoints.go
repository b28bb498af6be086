package registry

// ABI fragments shared by the allowance manager and executors.
const ERC20MinimalABI = `[
	{"name":"allowance","type":"function","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"approve","type":"function","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"decimals","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]}
]`

// Aggregator endpoints. A single aggregator serves both same-chain swap
// routes and cross-chain bridge routes plus their settlement status.
const (
	AggregatorBaseURL   = "https://li.quest/v1"
	AggregatorStatusURL = "https://li.quest/v1/status"

	SpotPriceBaseURL = "https://api.binance.com/api/v3/ticker/price"
)
