// Package reconcile provides client-side conflict reconciliation for the
// sibling sets returned by the store. It computes the maximal set of winning
// versions and the successor clock a resolving write must carry.
package reconcile
