// Package main provides the fundsight CLI: fund scoring, portfolio
// backtests, stress tests, and rebalance threshold sweeps.
package main

func main() {
	Execute()
}
