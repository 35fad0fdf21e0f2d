package app

import "github.com/agentstation/lineup/internal/appcontext"

// Ensure App implements the shared command interface.
var _ appcontext.Interface = (*App)(nil)
