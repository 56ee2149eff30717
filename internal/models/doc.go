// Package models defines the core domain entities for Splitbook.
//
// # Entities
//
//   - User: registered account, referenced as payer/recipient/member
//   - Group: named collection of users sharing expenses
//   - Membership: (group, user) pair with a role
//   - Expense: a cost paid by one member and split among participants
//   - ExpenseShare: one participant's portion of an expense
//   - Payment: a direct transfer between two members of a group
//   - AuditLogEntry: immutable before/after snapshot of one mutation
//
// # Design Principles
//
//  1. **Money is decimal**: all amounts use shopspring/decimal, never floats
//  2. **Soft delete everywhere**: Users, Groups, Expenses and Payments carry a
//     deletion timestamp instead of being removed; hard deletion is a
//     separate, guarded step only allowed on already soft-deleted rows
//  3. **Avoid circular references**: relationships use ID strings, not pointers
//  4. **Audit entries are values**: the acting user's email and display name
//     are copied into the entry at write time so the record survives later
//     deletion of the user row
package models
