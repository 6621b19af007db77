package ui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/tagalbum/internal/models"
)

var (
	_ list.Item = albumItem{}
	_ list.Item = imageItem{}
)

// albumItem wraps [models.Album] to implement [list.Item].
type albumItem struct {
	album *models.Album
}

func (i albumItem) FilterValue() string { return i.album.Hashtag }
func (i albumItem) Title() string       { return fmt.Sprintf("%d. %s", i.album.Sequence, i.album.Hashtag) }
func (i albumItem) Description() string {
	desc := fmt.Sprintf("%d images", i.album.Len())
	if !i.album.UpdatedAt.IsZero() {
		desc = fmt.Sprintf("%s • updated %s", desc, i.album.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	return desc
}

// imageItem wraps [models.Item] to implement [list.Item].
type imageItem struct {
	item     models.Item
	useBlobs bool
}

func (i imageItem) FilterValue() string { return strconv.FormatInt(i.item.ExternalID, 10) }
func (i imageItem) Title() string       { return i.item.DisplayURL(i.useBlobs) }
func (i imageItem) Description() string {
	desc := fmt.Sprintf("%d • %s", i.item.ExternalID, i.item.URL)
	if i.item.ExternalURL != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.item.ExternalURL)
	}
	return desc
}
