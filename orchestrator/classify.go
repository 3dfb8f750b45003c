package orchestrator

import (
	"fmt"
	"strings"

	"recipeagent"
	"recipeagent/tools"
)

// Error kinds surfaced by the orchestrator.
const (
	KindInputInvalid       = "input_invalid"
	KindLLMBlocked         = "llm_blocked"
	KindLLMFlaggedBlocking = "llm_flagged_blocking"

	KindToolRateLimited        = "tool_rate_limited"
	KindToolAuth               = "tool_auth"
	KindToolNotFound           = "tool_not_found"
	KindToolInvalidRecipient   = "tool_invalid_recipient"
	KindToolBlockedByRecipient = "tool_blocked_by_recipient"
	KindToolUnverifiedSender   = "tool_unverified_sender"
	KindToolTransient          = "tool_transient"
	KindToolOther              = "tool_other"
)

// StageError is a classified stage failure surfaced to the caller.
type StageError struct {
	Stage   int
	Kind    string
	Message string
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %d: %s: %s", e.Stage, e.Kind, e.Message)
}

func (e *StageError) Unwrap() error { return e.Err }

func inputInvalid(stage int, msg string) *StageError {
	return &StageError{Stage: stage, Kind: KindInputInvalid, Message: msg}
}

// toolStageError maps an adapter error onto a StageError.
func toolStageError(stage int, err error) *StageError {
	kind := KindToolOther
	switch tools.ErrKind(err) {
	case tools.KindRateLimited:
		kind = KindToolRateLimited
	case tools.KindAuth:
		kind = KindToolAuth
	case tools.KindNotFound:
		kind = KindToolNotFound
	case tools.KindInvalidRecipient:
		kind = KindToolInvalidRecipient
	case tools.KindBlockedByRecipient:
		kind = KindToolBlockedByRecipient
	case tools.KindUnverifiedSender:
		kind = KindToolUnverifiedSender
	case tools.KindTransient:
		kind = KindToolTransient
	}
	return &StageError{Stage: stage, Kind: kind, Message: err.Error(), Err: err}
}

// blockingKeywords is the closed per-stage set that promotes an LLM-flagged
// error to blocking. The LLM never gates side effects directly; this set does.
var blockingKeywords = map[int][]string{
	1: {"invalid ingredients", "ambiguous preferences"},
	2: {"invalid recipe id", "user ingredients list missing"},
	3: {"invalid delivery details"},
}

// classifyFlags splits LLM-flagged metadata into at most one blocking error
// and a list of advisory notes. An error is blocking iff its text contains a
// stage keyword, case-insensitively. Uncertainties are always advisory.
func classifyFlags(stage int, md recipeagent.LLMMetadata) (blocking string, advisories []string) {
	for _, e := range md.Errors {
		if blocking == "" && containsKeyword(stage, e) {
			blocking = e
			continue
		}
		advisories = append(advisories, "LLM flagged: "+e)
	}
	for _, u := range md.Uncertainties {
		advisories = append(advisories, "LLM uncertainty: "+u)
	}
	return blocking, advisories
}

func containsKeyword(stage int, text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range blockingKeywords[stage] {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
