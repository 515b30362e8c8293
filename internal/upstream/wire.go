package upstream

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/d60-Lab/habbo-feed/internal/model"
)

type profileDTO struct {
	UniqueID       string     `json:"uniqueId"`
	Name           string     `json:"name"`
	Motto          string     `json:"motto"`
	FigureString   string     `json:"figureString"`
	ProfileVisible *bool      `json:"profileVisible"`
	SelectedBadges []badgeDTO `json:"selectedBadges"`
}

type badgeDTO struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type groupDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type roomDTO struct {
	ID           json.Number `json:"id"`
	Name         string      `json:"name"`
	CreationTime string      `json:"creationTime"`
}

type friendDTO struct {
	UniqueID string `json:"uniqueId"`
	Name     string `json:"name"`
}

type photoDTO struct {
	ID              string            `json:"id"`
	URL             string            `json:"url"`
	PreviewURL      string            `json:"previewUrl"`
	CreatorName     string            `json:"creator_name"`
	CreatorUniqueID string            `json:"creator_uniqueId"`
	RoomID          json.Number       `json:"room_id"`
	RoomName        string            `json:"roomName"`
	Caption         string            `json:"caption"`
	Time            json.Number       `json:"time"`
	CreationTime    string            `json:"creationTime"`
	Likes           []json.RawMessage `json:"likes"`
	LikesCount      int               `json:"likesCount"`
}

// msBefore2000 separates second and millisecond epoch values.
const msBefore2000 = 946684800000

var photoFileTime = regexp.MustCompile(`p-\d+-(\d+)\.`)

// timestamp picks the most precise time a photo carries: the time field
// (seconds or ms), then creationTime, then the ms suffix of the file name.
func (p photoDTO) timestamp() int64 {
	if p.Time != "" {
		if v, err := strconv.ParseInt(string(p.Time), 10, 64); err == nil && v > 0 {
			if v < msBefore2000 {
				v *= 1000
			}
			return v
		}
	}
	if p.CreationTime != "" {
		if t, err := time.Parse(time.RFC3339, p.CreationTime); err == nil {
			return t.UnixMilli()
		}
	}
	if m := photoFileTime.FindStringSubmatch(p.URL); m != nil {
		if v, err := strconv.ParseInt(m[1], 10, 64); err == nil && v > msBefore2000 {
			return v
		}
	}
	return 0
}

func (p photoDTO) entry(fallbackName string) model.PhotoEntry {
	name := p.CreatorName
	if name == "" {
		name = fallbackName
	}
	likes := p.LikesCount
	if likes == 0 {
		likes = len(p.Likes)
	}
	return model.PhotoEntry{
		PhotoID:   p.ID,
		UserName:  name,
		ImageURL:  absoluteURL(p.URL),
		Timestamp: p.timestamp(),
		LikeCount: likes,
		RoomName:  p.RoomName,
		Caption:   p.Caption,
	}
}

func (p photoDTO) descriptor() model.Descriptor {
	d := model.Descriptor{ID: p.ID}
	if ts := p.timestamp(); ts > 0 {
		d.At = time.UnixMilli(ts).UTC()
	}
	return d
}

func absoluteURL(u string) string {
	if strings.HasPrefix(u, "//") {
		return "https:" + u
	}
	return u
}
