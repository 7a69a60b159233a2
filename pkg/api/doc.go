// Package api exposes the authorization service over HTTP: access
// decisions, effective permission queries, role and grant management, and
// per-resource shares. Denials are deliberately uniform on the wire so
// callers cannot distinguish "hidden" from "forbidden" beyond the status
// code contract.
package api
