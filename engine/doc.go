// Package engine resolves, dispatches and executes numeric kernel requests
// against a shared array table.
//
// A request names an operation and one to three operands. Each operand is
// either the name of a published array or a tagged scalar. Execution proceeds
// in fixed stages:
//
//  1. Resolve every named operand in the table.
//  2. Infer the request shape (unary, binary vv/vs/sv, ternary vvv/vvs/vsv/vss)
//     and check that all vector operands have the same length.
//  3. Look up the kernel registered for the exact (operation, dtypes) tuple.
//     There is no implicit promotion; an unmatched tuple fails.
//  4. For scans and hashes, admit the projected output bytes against the
//     memory budget before anything is allocated.
//  5. Run the kernel on the worker pool and publish its outputs in one step.
//
// A request either publishes all of its outputs or leaves the table untouched.
package engine
