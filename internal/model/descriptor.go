package model

import "time"

// Descriptor 徽章 / 群组 / 房间 / 照片的不透明描述
type Descriptor struct {
	ID   string    `json:"id,omitempty"`
	Name string    `json:"name,omitempty"`
	At   time.Time `json:"at,omitempty"`
}

// Identity 去重标识：优先 ID，缺省时退化为 Name
func (d Descriptor) Identity() string {
	if d.ID != "" {
		return d.ID
	}
	return d.Name
}

// UnionDescriptors 将 add 中未出现过的项追加到 base 之后，保持首次出现顺序
func UnionDescriptors(base, add []Descriptor) []Descriptor {
	seen := make(map[string]struct{}, len(base)+len(add))
	out := make([]Descriptor, 0, len(base)+len(add))
	for _, list := range [][]Descriptor{base, add} {
		for _, d := range list {
			id := d.Identity()
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, d)
		}
	}
	return out
}
