// Package query builds the analytical SQL sent to the Flipside warehouse.
// Each builder returns a single statement producing a union of 'node' rows
// (top traders) and 'edge' rows (shared transactions between them).
package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Params holds the analyst-supplied filters passed through to the SQL templates.
type Params struct {
	ContractAddress string
	StartDate       time.Time
	EndDate         time.Time
	MinUSDAmount    float64
	MaxUSDAmount    float64
	MinActiveDays   int
	Limit           int
}

// EVM chains with ez_dex_swaps coverage in the warehouse.
var validEVMChains = []string{"ethereum", "base", "arbitrum", "optimism", "avalanche", "bsc", "polygon"}

const dateLayout = "2006-01-02"

// IsEVMChain reports whether chain is a supported EVM chain name.
func IsEVMChain(chain string) bool {
	chain = strings.ToLower(chain)
	for _, c := range validEVMChains {
		if c == chain {
			return true
		}
	}
	return false
}

// ForChain dispatches to the EVM or Solana builder based on the chain name.
func ForChain(chain string, p Params) (string, error) {
	if strings.EqualFold(chain, "solana") {
		return SolanaTradersAndConnections(p)
	}
	return EVMTradersAndConnections(chain, p)
}

// EVMTradersAndConnections builds the combined top-traders and connections
// query for an EVM chain, excluding labeled CEX/DEX/pool/bridge/bot addresses.
func EVMTradersAndConnections(chain string, p Params) (string, error) {
	chain = strings.ToLower(chain)
	if !IsEVMChain(chain) {
		return "", fmt.Errorf("chain must be one of %v, got %q", validEVMChains, chain)
	}
	if !common.IsHexAddress(p.ContractAddress) {
		return "", fmt.Errorf("invalid EVM contract address %q", p.ContractAddress)
	}

	sql := fmt.Sprintf(`
    WITH swap_transactions AS (
        SELECT
            block_timestamp,
            tx_hash,
            sender as trader,
            COALESCE(amount_in_usd, 0) + COALESCE(amount_out_usd, 0) as amount_usd,
            CASE
                WHEN token_in = LOWER(TRIM('%[1]s')) THEN amount_in
                WHEN token_out = LOWER(TRIM('%[1]s')) THEN amount_out
            END as token_amount
        FROM %[2]s.defi.ez_dex_swaps
        WHERE (token_in = LOWER(TRIM('%[1]s')) OR token_out = LOWER(TRIM('%[1]s')))
            AND block_timestamp >= '%[3]s'
            AND block_timestamp < DATEADD(day, 1, '%[4]s')::date
            AND COALESCE(amount_in_usd, 0) + COALESCE(amount_out_usd, 0) >= %[5]s
            AND COALESCE(amount_in_usd, 0) + COALESCE(amount_out_usd, 0) <= %[6]s
    ),

    filtered_traders AS (
        SELECT DISTINCT
            trader as address
        FROM swap_transactions
        WHERE trader NOT IN (
            SELECT address
            FROM %[2]s.core.dim_labels
            WHERE label_type IN (
                'cex', 'dex', 'defi', 'bridge', 'contract', 'treasury', 'infrastructure'
            )
            OR label_subtype IN (
                'pool', 'router', 'exchange', 'mev_bot', 'flash_loan', 'vault',
                'wrapper', 'burn_address', 'null_address'
            )
            OR LOWER(address_name) LIKE ANY (
                '%%pool%%', '%%bot%%', '%%mev%%', '%%vault%%', '%%treasury%%',
                '%%wrapper%%', '%%flash%%loan%%', '%%token%%account%%', '%%amm%%'
            )
            LIMIT 1000
        )
    ),

    trading_patterns AS (
        SELECT
            trader as address,
            COUNT(DISTINCT DATE_TRUNC('day', block_timestamp)) as active_days,
            COUNT(DISTINCT tx_hash) as total_trades,
            COUNT(DISTINCT tx_hash)::FLOAT / COUNT(DISTINCT DATE_TRUNC('day', block_timestamp)) as avg_daily_trades,
            SUM(amount_usd) as total_volume
        FROM swap_transactions
        WHERE trader IN (SELECT address FROM filtered_traders)
        GROUP BY trader
        HAVING
            COUNT(DISTINCT DATE_TRUNC('day', block_timestamp)) >= %[7]d
            AND COUNT(DISTINCT tx_hash) >= 5
    ),

    top_traders AS (
        SELECT
            s.trader as address,
            COUNT(DISTINCT s.tx_hash) as trade_count,
            SUM(ABS(s.token_amount)) as total_tokens_traded,
            SUM(s.amount_usd) as total_usd_traded,
            tp.active_days,
            tp.avg_daily_trades
        FROM swap_transactions s
        JOIN trading_patterns tp ON s.trader = tp.address
        WHERE s.trader IN (SELECT address FROM filtered_traders)
        GROUP BY s.trader, tp.active_days, tp.avg_daily_trades
        HAVING total_usd_traded > 0
        QUALIFY ROW_NUMBER() OVER (ORDER BY total_usd_traded DESC) <= %[8]d
    ),

    connections AS (
        SELECT
            s1.trader as source,
            s2.trader as target,
            COUNT(DISTINCT s1.tx_hash) as transaction_count,
            SUM(ABS(s1.token_amount)) as total_tokens,
            SUM(s1.amount_usd) as total_value
        FROM swap_transactions s1
        JOIN swap_transactions s2
            ON s1.tx_hash = s2.tx_hash
            AND s1.trader < s2.trader
        WHERE s1.trader IN (SELECT address FROM top_traders)
            AND s2.trader IN (SELECT address FROM top_traders)
        GROUP BY s1.trader, s2.trader
        HAVING total_value > 0
    )

    SELECT
        'node' as type,
        address,
        NULL as target_address,
        TO_NUMBER(trade_count) as trade_count,
        TO_NUMBER(total_tokens_traded) as total_tokens_traded,
        TO_NUMBER(total_usd_traded) as total_usd_traded,
        TO_NUMBER(active_days) as active_days,
        TO_NUMBER(ROUND(avg_daily_trades, 2)) as avg_daily_trades
    FROM top_traders

    UNION ALL

    SELECT
        'edge' as type,
        source as address,
        target as target_address,
        TO_NUMBER(transaction_count) as trade_count,
        TO_NUMBER(total_tokens) as total_tokens_traded,
        TO_NUMBER(total_value) as total_usd_traded,
        NULL as active_days,
        NULL as avg_daily_trades
    FROM connections
    ORDER BY type, total_usd_traded DESC;`,
		p.ContractAddress,
		chain,
		p.StartDate.Format(dateLayout),
		p.EndDate.Format(dateLayout),
		formatUSDAmount(p.MinUSDAmount),
		formatUSDAmount(p.MaxUSDAmount),
		p.MinActiveDays,
		p.Limit,
	)

	return sql, nil
}

// SolanaTradersAndConnections builds the combined top-traders and connections
// query for Solana. Edges come from direct token transfers between the top
// traders, priced from the hourly price feed.
func SolanaTradersAndConnections(p Params) (string, error) {
	if p.ContractAddress == "" {
		return "", fmt.Errorf("token mint address is required")
	}

	sql := fmt.Sprintf(`
    WITH swap_transactions AS (
    SELECT
        block_timestamp,
        swapper as trader,
        swap_from_amount as token_amount,
        COALESCE(swap_from_amount_usd, 0) + COALESCE(swap_to_amount_usd, 0) as amount_usd,
        tx_id
    FROM solana.defi.ez_dex_swaps
    WHERE (swap_from_mint = '%[1]s' OR swap_to_mint = '%[1]s')
        AND block_timestamp BETWEEN '%[2]s' AND '%[3]s'
        AND COALESCE(swap_from_amount_usd, 0) + COALESCE(swap_to_amount_usd, 0) >= %[4]s
        AND COALESCE(swap_from_amount_usd, 0) + COALESCE(swap_to_amount_usd, 0) <= %[5]s
    ),

    trading_patterns AS (
        SELECT
            trader,
            COUNT(DISTINCT DATE_TRUNC('day', block_timestamp)) as active_days,
            COUNT(DISTINCT tx_id) as total_trades,
            COUNT(DISTINCT tx_id) / COUNT(DISTINCT DATE_TRUNC('day', block_timestamp)) as avg_daily_trades,
            SUM(amount_usd) as total_volume
        FROM swap_transactions
        GROUP BY trader
        HAVING
            COUNT(DISTINCT DATE_TRUNC('day', block_timestamp)) >= %[6]d
            AND COUNT(DISTINCT tx_id) >= 5
    ),

    filtered_traders AS (
        SELECT DISTINCT
            tp.trader as address
        FROM trading_patterns tp
        WHERE tp.trader NOT IN (
            SELECT DISTINCT l.address
            FROM solana.core.dim_labels l
            WHERE label_type IN (
                'cex', 'dex', 'defi', 'bridge', 'contract', 'treasury', 'infrastructure', 'token'
            )
            OR label_subtype IN (
                'pool', 'router', 'exchange', 'mev_bot', 'flash_loan', 'vault',
                'wrapper', 'burn_address', 'null_address', 'token_account'
            )
            OR LOWER(address_name) LIKE ANY (
                '%%pool%%', '%%bot%%', '%%mev%%', '%%vault%%', '%%treasury%%',
                '%%wrapper%%', '%%flash%%loan%%', '%%token%%account%%', '%%amm%%'
            )
            LIMIT 1000
        )
    ),

    trader_nodes AS (
        SELECT
            'node' as type,
            st.trader as address,
            NULL as target_address,
            COUNT(DISTINCT st.tx_id) as trade_count,
            SUM(st.token_amount) as total_tokens_traded,
            SUM(st.amount_usd) as total_usd_traded,
            tp.active_days,
            tp.avg_daily_trades
        FROM swap_transactions st
        JOIN trading_patterns tp ON st.trader = tp.trader
        WHERE st.trader IN (SELECT address FROM filtered_traders)
        GROUP BY st.trader, tp.active_days, tp.avg_daily_trades
        ORDER BY total_usd_traded DESC
        LIMIT %[7]d
    ),

    transfers_between_traders AS (
        SELECT
            'edge' as type,
            tx_from as address,
            tx_to as target_address,
            COUNT(DISTINCT tx_id) as trade_count,
            SUM(amount) as total_tokens_traded,
            SUM(amount * COALESCE(p.price, 0)) as total_usd_traded,
            NULL as active_days,
            NULL as avg_daily_trades
        FROM solana.core.fact_transfers ft
        LEFT JOIN solana.price.ez_prices_hourly p
            ON p.token_address = '%[1]s'
            AND DATE_TRUNC('hour', ft.block_timestamp) = p.hour
        WHERE ft.block_timestamp BETWEEN '%[2]s' AND '%[3]s'
        AND ft.mint = '%[1]s'
        AND ft.tx_from IN (SELECT address FROM trader_nodes)
        AND ft.tx_to IN (SELECT address FROM trader_nodes)
        GROUP BY tx_from, tx_to
        HAVING SUM(amount) > 0
    )

    SELECT
        type,
        address,
        target_address,
        trade_count,
        TO_NUMBER(total_tokens_traded) as total_tokens_traded,
        TO_NUMBER(total_usd_traded) as total_usd_traded,
        active_days,
        ROUND(avg_daily_trades, 2) as avg_daily_trades
    FROM trader_nodes

    UNION ALL

    SELECT
        type,
        address,
        target_address,
        trade_count,
        TO_NUMBER(total_tokens_traded) as total_tokens_traded,
        TO_NUMBER(total_usd_traded) as total_usd_traded,
        active_days,
        avg_daily_trades
    FROM transfers_between_traders
    ORDER BY type, total_usd_traded DESC;`,
		p.ContractAddress,
		p.StartDate.Format(dateLayout),
		p.EndDate.Format(dateLayout),
		formatUSDAmount(p.MinUSDAmount),
		formatUSDAmount(p.MaxUSDAmount),
		p.MinActiveDays,
		p.Limit,
	)

	return sql, nil
}

// formatUSDAmount renders a USD bound as plain decimal SQL, never exponent
// notation.
func formatUSDAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
