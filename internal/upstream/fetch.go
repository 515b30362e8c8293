package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/d60-Lab/habbo-feed/internal/model"
)

// FetchSnapshots loads the public profile of every user concurrently. Users
// whose profile is hidden or fails to load are skipped; an error is returned
// only when every requested user failed.
func (c *Client) FetchSnapshots(ctx context.Context, userIDs []string, hotel string) ([]model.RawSnapshot, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	results := make([]*model.RawSnapshot, len(userIDs))
	var (
		mu      sync.Mutex
		lastErr error
		failed  int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, id := range userIDs {
		i, id := i, id
		g.Go(func() error {
			snap, err := c.fetchSnapshot(gctx, id, hotel)
			if err != nil {
				if errors.Is(err, context.Canceled) && ctx.Err() != nil {
					return err
				}
				logSkip("snapshot", hotel, id, err)
				mu.Lock()
				failed++
				lastErr = err
				mu.Unlock()
				return nil
			}
			results[i] = snap
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]model.RawSnapshot, 0, len(userIDs))
	for _, s := range results {
		if s != nil {
			out = append(out, *s)
		}
	}
	if failed == len(userIDs) && lastErr != nil && !errors.Is(lastErr, errNotFound) {
		return nil, lastErr
	}
	return out, nil
}

func (c *Client) fetchSnapshot(ctx context.Context, userID, hotel string) (*model.RawSnapshot, error) {
	base := "/api/public/users/" + url.PathEscape(userID)

	var p profileDTO
	if err := c.get(ctx, "profile", hotel, base, &p); err != nil {
		return nil, err
	}
	if p.ProfileVisible != nil && !*p.ProfileVisible {
		return nil, fmt.Errorf("profile %s: %w", userID, errNotFound)
	}

	var (
		badges []badgeDTO
		groups []groupDTO
		rooms  []roomDTO
		photos []photoDTO
	)
	if err := c.get(ctx, "badges", hotel, base+"/badges", &badges); err != nil && !errors.Is(err, errNotFound) {
		return nil, err
	}
	if err := c.get(ctx, "groups", hotel, base+"/groups", &groups); err != nil && !errors.Is(err, errNotFound) {
		return nil, err
	}
	if err := c.get(ctx, "rooms", hotel, base+"/rooms", &rooms); err != nil && !errors.Is(err, errNotFound) {
		return nil, err
	}
	if err := c.get(ctx, "photos", hotel, "/extradata/public/users/"+url.PathEscape(userID)+"/photos", &photos); err != nil && !errors.Is(err, errNotFound) {
		return nil, err
	}

	id := p.UniqueID
	if id == "" {
		id = userID
	}
	snap := &model.RawSnapshot{
		UserID:       id,
		UserName:     p.Name,
		Hotel:        hotel,
		Motto:        p.Motto,
		FigureString: p.FigureString,
		CapturedAt:   c.now().UTC(),
	}
	for _, b := range badges {
		snap.Badges = append(snap.Badges, model.Descriptor{ID: b.Code, Name: b.Name})
	}
	for _, g := range groups {
		snap.Groups = append(snap.Groups, model.Descriptor{ID: g.ID, Name: g.Name})
	}
	for _, r := range rooms {
		snap.Rooms = append(snap.Rooms, model.Descriptor{ID: r.ID.String(), Name: r.Name})
	}
	for _, ph := range photos {
		if ph.ID == "" {
			continue
		}
		snap.Photos = append(snap.Photos, ph.descriptor())
	}
	return snap, nil
}

// FetchFriendRoster lists the viewer's friends. A hidden friend list yields an
// empty roster.
func (c *Client) FetchFriendRoster(ctx context.Context, viewerID, hotel string) ([]model.RosterEntry, error) {
	var friends []friendDTO
	err := c.get(ctx, "friends", hotel, "/api/public/users/"+url.PathEscape(viewerID)+"/friends", &friends)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]model.RosterEntry, 0, len(friends))
	for _, f := range friends {
		if f.UniqueID == "" {
			continue
		}
		out = append(out, model.RosterEntry{UserID: f.UniqueID, UserName: f.Name})
	}
	return out, nil
}

// FetchPhotoPage collects the photos of every user, sorts them newest first
// and returns the slice [offset, offset+limit). Users whose photos fail to
// load are skipped.
func (c *Client) FetchPhotoPage(ctx context.Context, userIDs []string, hotel string, offset, limit int) (model.PhotoPage, error) {
	if offset < 0 {
		offset = 0
	}
	perUser := make([][]model.PhotoEntry, len(userIDs))
	var (
		mu      sync.Mutex
		failed  int
		lastErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, id := range userIDs {
		i, id := i, id
		g.Go(func() error {
			var photos []photoDTO
			err := c.get(gctx, "photos", hotel, "/extradata/public/users/"+url.PathEscape(id)+"/photos", &photos)
			if errors.Is(err, errNotFound) {
				return nil
			}
			if err != nil {
				if errors.Is(err, context.Canceled) && ctx.Err() != nil {
					return err
				}
				logSkip("photos", hotel, id, err)
				mu.Lock()
				failed++
				lastErr = err
				mu.Unlock()
				return nil
			}
			entries := make([]model.PhotoEntry, 0, len(photos))
			for _, p := range photos {
				entries = append(entries, p.entry(""))
			}
			perUser[i] = entries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return model.PhotoPage{}, err
	}
	if len(userIDs) > 0 && failed == len(userIDs) {
		return model.PhotoPage{}, lastErr
	}

	var all []model.PhotoEntry
	for _, entries := range perUser {
		all = append(all, entries...)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Timestamp > all[j].Timestamp })

	if offset >= len(all) {
		return model.PhotoPage{Items: []model.PhotoEntry{}}, nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return model.PhotoPage{Items: all[offset:end], HasMore: end < len(all)}, nil
}
