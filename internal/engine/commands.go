package engine

import (
	"sort"
	"strings"
)

// Command names understood by the analysis worker.
const (
	CmdHeartbeat       = "HEARTBEAT"
	CmdLoad            = "LOAD"
	CmdAnalyze         = "ANALYZE"
	CmdLoadPathway     = "LOAD_PATHWAY"
	CmdColorPathway    = "COLOR_PATHWAY"
	CmdSearchPathway   = "SEARCH_PATHWAY"
	CmdDownloadPathway = "DOWNLOAD_PATHWAY"
	CmdChat            = "CHAT"
	CmdChatConfirm     = "CHAT_CONFIRM"
	CmdChatReject      = "CHAT_REJECT"
	CmdSaveAnalysis    = "SAVE_ANALYSIS"
	CmdLoadHistory     = "LOAD_HISTORY"
	CmdLoadAnalysis    = "LOAD_ANALYSIS"
	CmdSaveData        = "SAVE_DATA"
)

var knownCommands = map[string]struct{}{
	CmdHeartbeat:       {},
	CmdLoad:            {},
	CmdAnalyze:         {},
	CmdLoadPathway:     {},
	CmdColorPathway:    {},
	CmdSearchPathway:   {},
	CmdDownloadPathway: {},
	CmdChat:            {},
	CmdChatConfirm:     {},
	CmdChatReject:      {},
	CmdSaveAnalysis:    {},
	CmdLoadHistory:     {},
	CmdLoadAnalysis:    {},
	CmdSaveData:        {},
}

// KnownCommand reports whether name is part of the published command set.
// Unknown names are still dispatched verbatim; this exists for CLI warnings
// and completion.
func KnownCommand(name string) bool {
	_, ok := knownCommands[strings.ToUpper(strings.TrimSpace(name))]
	return ok
}

// KnownCommands returns the published command set in sorted order.
func KnownCommands() []string {
	out := make([]string, 0, len(knownCommands))
	for name := range knownCommands {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
