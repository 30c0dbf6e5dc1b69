// Package ateam is the root of a small toolkit for running LLM agents that
// call typed tools and hand work to each other.
//
// The pieces live in subpackages:
//
//	llm            provider-neutral chat client, model routing, structured output
//	tools          typed tools with generated JSON schemas and a registry
//	state          key-value state shared by the tool calls of one agent
//	agent          the run loop, results and the agent-as-tool adapter
//	team           config-driven teams and sequential/parallel composition
//	server/http    HTTP API over a team
//
// The cmd/ateam binary loads a team from a JSON config and either runs a
// single message or serves it over HTTP.
package ateam
