package feedview

import (
	"fmt"
	"strings"

	"github.com/fragmede/instalight/internal/feed"
	"github.com/fragmede/instalight/internal/render"
)

// PostItem wraps a feed item for the bubbles list.
type PostItem struct {
	feed.Item
	Author string
	Index  int
}

func (p PostItem) Title() string {
	author := p.Author
	if author == "" {
		author = fmt.Sprintf("user %d", p.AuthorID)
	}
	caption := render.FirstLine(render.CaptionText(p.Caption, 0))
	if caption == "" {
		caption = "(no caption)"
	}
	return "@" + author + "  " + render.Truncate(caption, 80)
}

func (p PostItem) Description() string {
	parts := make([]string, 0, 4)

	heart := "♡"
	if p.LikedByViewer {
		heart = "♥"
	}
	parts = append(parts, heart+" "+render.Likes(p.LikeCount))
	if ago := render.TimeAgo(p.CreatedAt); ago != "" {
		parts = append(parts, ago)
	}
	if p.Flagged {
		parts = append(parts, "flagged")
	}
	return strings.Join(parts, " | ")
}

func (p PostItem) FilterValue() string {
	return p.Author + " " + p.Caption
}
