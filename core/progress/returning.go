package progress

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
)

// Suggested actions for a returning user.
const (
	ActionContinue = "continue"
	ActionStartNew = "start_new"
)

// activityWindow is how recently a module must have been touched for the user
// to be considered mid-study.
const activityWindow = 7 * 24 * time.Hour

// ReturningUserContext is the welcome-back snapshot: where the user left off
// and a chat prompt summarizing their progress.
type ReturningUserContext struct {
	LastContent        LastAccessedContent `json:"last_content"`
	SuggestedAction    string              `json:"suggested_action"`
	ContinuationPrompt string              `json:"continuation_prompt"`
}

func (svc *service) GetReturningUserContext(ctx context.Context, userID string) (ReturningUserContext, error) {
	lastContent, err := svc.GetLastAccessedContent(ctx, userID)
	if err != nil {
		return ReturningUserContext{}, err
	}

	if lastContent.Chunk == nil {
		return ReturningUserContext{
			LastContent:        lastContent,
			SuggestedAction:    ActionStartNew,
			ContinuationPrompt: "Welcome back! Would you like to start your learning journey?",
		}, nil
	}

	var b strings.Builder
	b.WriteString("Welcome back! ")

	if path := lastContent.LearningPath; path != nil && path.TotalSequences > 0 {
		pct := int(math.Round(float64(path.CompletedSequences) / float64(path.TotalSequences) * 100))
		fmt.Fprintf(&b, "You're %d%% through the %q learning path. ", pct, path.Title)
	}
	if seq := lastContent.Sequence; seq != nil {
		fmt.Fprintf(&b, "You've completed %d of %d modules in the current sequence. ", seq.CompletedModules, seq.TotalModules)
	}
	if mod := lastContent.Module; mod != nil {
		fmt.Fprintf(&b, "You've completed %d of %d chunks in your current module. ", mod.CompletedChunks, mod.TotalChunks)
	}

	active := lastContent.Module != nil &&
		lastContent.Module.LastAccessedAt.Valid &&
		NowFunc().Sub(lastContent.Module.LastAccessedAt.Time) < activityWindow

	rctx := ReturningUserContext{LastContent: lastContent}
	if active {
		rctx.SuggestedAction = ActionContinue
		b.WriteString("Would you like to continue where you left off?")
	} else {
		rctx.SuggestedAction = ActionStartNew
		b.WriteString("It's been a while. Would you like to continue where you left off or start something new?")
	}
	rctx.ContinuationPrompt = b.String()
	return rctx, nil
}
