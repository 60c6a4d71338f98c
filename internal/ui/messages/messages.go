package messages

import (
	"github.com/fragmede/instalight/internal/api"
	"github.com/fragmede/instalight/internal/app"
	"github.com/fragmede/instalight/internal/auth"
)

// View transition messages.
type (
	OpenPostMsg   struct{ PostID int64 }
	OpenUserMsg   struct{ UserID int64 }
	OpenUploadMsg struct{}
	OpenSearchMsg struct{}
	OpenLoginMsg  struct{}
	OpenFeedMsg   struct{}
	GoBackMsg     struct{}
	LogoutMsg     struct{}
	ShowHelpMsg   struct{}
)

// Data messages.
type (
	// FeedChangedMsg is sent whenever the feed controller's state changes.
	FeedChangedMsg struct{}

	// FeedOpResultMsg reports the outcome of a feed fetch or mutation.
	FeedOpResultMsg struct {
		Op  string
		Err error
	}

	AuthorsLoadedMsg struct {
		Names map[int64]string
	}

	// SessionChangedMsg is sent when the stored credential changes.
	SessionChangedMsg struct {
		Credential auth.Credential
	}

	LoginResultMsg struct {
		Username string
		Err      error
	}

	UploadResultMsg struct {
		Post *api.Post
		Size int64
		Err  error
	}

	ProfileLoadedMsg struct {
		UserID  int64
		Profile *api.Profile
		Err     error
	}

	ProfilePostDeletedMsg struct {
		PostID int64
		Err    error
	}

	PostLoadedMsg struct {
		PostID int64
		Detail *app.PostDetail
		Err    error
	}

	CommentResultMsg struct {
		PostID  int64
		Comment *api.Comment
		Err     error
	}

	CommentDeletedMsg struct {
		CommentID int64
		Err       error
	}

	SearchResultsMsg struct {
		Seq   int
		Query string
		Users []api.User
		Err   error
	}

	NewPostsMsg struct {
		Count int
	}

	StatusMsg struct {
		Text    string
		IsError bool
	}
)
