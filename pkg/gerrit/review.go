package gerrit

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	gogerrit "github.com/andygrunwald/go-gerrit"
	"github.com/charmbracelet/githooks/pkg/hooks"
)

// DefaultLabel is the label voted on when githooks.gerrit.votes-label is
// not configured.
const DefaultLabel = "Code-Review"

// Review is one vote on a change revision.
type Review struct {
	Message string
	Label   string
	Vote    int
}

// Reviewer casts a review on a change revision.
type Reviewer interface {
	Review(ctx context.Context, change, revision string, review Review) error
}

// Client is a Reviewer backed by the Gerrit REST API.
type Client struct {
	gc *gogerrit.Client
}

// NewClient connects to the Gerrit instance at url. Credentials are
// optional, an anonymous client can still vote where the instance allows
// it.
func NewClient(ctx context.Context, url, username, password string) (*Client, error) {
	gc, err := gogerrit.NewClient(ctx, url, &http.Client{Timeout: 30 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("gerrit client for %s: %w", url, err)
	}
	if username != "" {
		gc.Authentication.SetBasicAuth(username, password)
	}
	return &Client{gc: gc}, nil
}

// Review implements Reviewer.
func (c *Client) Review(ctx context.Context, change, revision string, review Review) error {
	input := &gogerrit.ReviewInput{
		Message: review.Message,
		Labels:  map[string]int{review.Label: review.Vote},
	}
	if _, _, err := c.gc.Changes.SetReview(ctx, change, revision, input); err != nil {
		return fmt.Errorf("set review on %s: %w", change, err)
	}
	return nil
}

// VoteOnResult reports a dispatch outcome back to Gerrit: +1 on the
// configured label when the invocation was accepted, -1 with the fault
// report as the review message when it was not. Without
// githooks.gerrit.url the report stays local and no vote is cast.
func VoteOnResult(ctx context.Context, inv *hooks.Invocation, res hooks.Result) error {
	url, ok := inv.Config.Get("githooks.gerrit", "url")
	if !ok || url == "" {
		inv.Logger.Debug("githooks.gerrit.url not set, not voting")
		return nil
	}
	if inv.Gerrit == nil || inv.Gerrit.Change == "" || inv.Gerrit.Commit == "" {
		return nil
	}
	username, _ := inv.Config.Get("githooks.gerrit", "username")
	password, _ := inv.Config.Get("githooks.gerrit", "password")
	client, err := NewClient(ctx, url, username, password)
	if err != nil {
		return err
	}
	return CastVote(ctx, inv, client, res)
}

// CastVote sends the vote for a dispatch outcome through the reviewer.
func CastVote(ctx context.Context, inv *hooks.Invocation, reviewer Reviewer, res hooks.Result) error {
	label, _ := inv.Config.Get("githooks.gerrit", "votes-label")
	if label == "" {
		label = DefaultLabel
	}
	review := Review{Label: label, Vote: 1, Message: "githooks: all checks passed"}
	if !res.Accepted() {
		review.Vote = -1
		var report bytes.Buffer
		hooks.WriteReport(&report, inv.Point, res.Faults)
		review.Message = report.String()
	}
	if err := reviewer.Review(ctx, inv.Gerrit.Change, inv.Gerrit.Commit, review); err != nil {
		return err
	}
	inv.Logger.Debug("vote cast", "change", inv.Gerrit.Change, "label", label, "vote", review.Vote)
	return nil
}
