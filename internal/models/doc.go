// Package models defines the core domain models for splitbill.
//
// # Models
//
//   - User: a registered account that can own and participate in splitbills
//   - Splitbill: a group of members sharing expenses in one currency
//   - Member: a participant within one splitbill (may or may not be linked to a User)
//   - Expense: a cost paid by one member and split across members
//   - Assignment: one member's owed share of one expense
//   - Transfer: money handed directly from one member to another
//   - Balance: a derived net debt between two members
//   - Comment: free-text note on a splitbill
//   - GuestLink: a time-limited read-only access token for a splitbill
//
// # Design Principles
//
//  1. Models are plain value snapshots: relationships are expressed as ID
//     strings resolved through the storage layer, never as live object graphs.
//  2. Monetary fields are decimal.Decimal kept at two fraction digits; see
//     the money package for the rounding policy. float64 is never used for
//     money.
//  3. Balances are a derived projection of expenses and transfers. They are
//     recomputed and replaced, never edited by hand.
package models
