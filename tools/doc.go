/*
Package tools holds the tool contract, the tool registry and the arbiter that
enforces the approval policy before any gated tool runs.

Agents never call a Tool directly. They go through Arbiter.ExecuteWithApproval,
which is the only legitimate path for execution- and commit-class tools.
*/
package tools
