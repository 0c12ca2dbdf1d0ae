// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package agent defines the actor contract consumed by the devcrew orchestrator.

# Overview

An Agent is a named, stateful actor that consumes one Message and returns zero
or more follow-up Messages. The orchestrator never calls an Agent concurrently
with itself, so implementations may keep non-thread-safe session state.

# Core Interfaces

  - Agent       — ID, Role and synchronous Handle
  - AsyncAgent  — optional HandleAsync; agents without it are offloaded to a worker
  - ToolCaller  — the orchestrator surface agents use to run tools
  - Registry    — id → Agent lookup used by the dispatcher and the approval gate

# Built-in Agents

  - Func        — adapts a plain function into an Agent
  - UserProxy   — answers approval requests on behalf of a human
*/
package agent
