package models

import (
	"errors"
	"fmt"
	"gallery/db"
	"gallery/metrics"
	"gallery/notify"
	"log"
	"slices"
	"sync"

	"gorm.io/gorm"
)

// CoverStore is the part of the entity store the cover repair works with
type CoverStore interface {
	// FindAlbum returns nil (and no error) when the album does not exist
	FindAlbum(albumID uint64) (*Album, error)
	// IsMember reports whether an image with imageID exists with album_id = albumID
	IsMember(imageID, albumID uint64) (bool, error)
	// LatestMember returns the most recently created member image, nil for an empty album
	LatestMember(albumID uint64) (*Image, error)
	// SetCover may refuse a value that no longer matches the membership with ErrStaleCover
	SetCover(albumID uint64, imageID *uint64) error
}

// ErrStaleCover is returned by a CoverStore when the membership changed between
// choosing a cover and writing it
var ErrStaleCover = errors.New("cover is stale")

// maxRepairAttempts bounds the re-reads after ErrStaleCover
const maxRepairAttempts = 3

// SelectFallbackCover picks the most recently created image, ties broken by
// the higher ID. Returns nil for an empty list.
func SelectFallbackCover(members []Image) *Image {
	var best *Image
	for i := range members {
		if best == nil || newerThan(&members[i], best) {
			best = &members[i]
		}
	}
	return best
}

func newerThan(a, b *Image) bool {
	if a.CreatedAt != b.CreatedAt {
		return a.CreatedAt > b.CreatedAt
	}
	return a.ID > b.ID
}

// CoverRepairer re-derives album covers from the current album membership.
// Both operations are idempotent: nothing is written when the cover is already right.
type CoverRepairer struct {
	Store CoverStore
	// OnChange is called after a new cover was written
	OnChange func(album *Album)
}

// EnsureIntegrity makes sure the album cover is either empty or one of the album's
// current images, falling back to the latest member when the cover is unset or dangling.
// An albumID of 0 or an unknown album is a no-op.
func (r *CoverRepairer) EnsureIntegrity(albumID uint64) (bool, error) {
	if albumID == 0 {
		return false, nil
	}
	return r.withRetry(albumID, r.repair)
}

// EnsurePresence is used right after candidateID was put into the album: an album
// without a cover gets the candidate (the repairer does not re-check it), a dangling cover is repaired
// as in EnsureIntegrity. A zero candidate lets the latest member win.
func (r *CoverRepairer) EnsurePresence(albumID, candidateID uint64) (bool, error) {
	if albumID == 0 {
		return false, nil
	}
	first := true
	return r.withRetry(albumID, func(album *Album) (bool, error) {
		// after a stale write the candidate may be gone, plain repair from then on
		useCandidate := first && album.CoverImageID == nil && candidateID != 0
		first = false
		if useCandidate {
			return r.setCover(album, &candidateID)
		}
		return r.repair(album)
	})
}

// withRetry loads the album and applies fix, starting over when a concurrent
// membership change made the chosen cover stale
func (r *CoverRepairer) withRetry(albumID uint64, fix func(album *Album) (bool, error)) (changed bool, err error) {
	for attempt := 0; attempt < maxRepairAttempts; attempt++ {
		var album *Album
		album, err = r.Store.FindAlbum(albumID)
		if err != nil || album == nil {
			return false, err
		}
		changed, err = fix(album)
		if !errors.Is(err, ErrStaleCover) {
			return changed, err
		}
	}
	return false, err
}

func (r *CoverRepairer) repair(album *Album) (bool, error) {
	if album.CoverImageID != nil {
		member, err := r.Store.IsMember(*album.CoverImageID, album.ID)
		if err != nil {
			return false, err
		}
		if member {
			return false, nil
		}
	}
	fallback, err := r.Store.LatestMember(album.ID)
	if err != nil {
		return false, err
	}
	var next *uint64
	if fallback != nil {
		next = &fallback.ID
	}
	return r.setCover(album, next)
}

func (r *CoverRepairer) setCover(album *Album, next *uint64) (bool, error) {
	if sameID(album.CoverImageID, next) {
		return false, nil
	}
	if err := r.Store.SetCover(album.ID, next); err != nil {
		return false, err
	}
	album.CoverImageID = next
	if r.OnChange != nil {
		r.OnChange(album)
	}
	return true, nil
}

func sameID(a, b *uint64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// gormCoverStore runs the repair queries against the database
type gormCoverStore struct {
	tx *gorm.DB
}

func (s gormCoverStore) FindAlbum(albumID uint64) (*Album, error) {
	album := Album{}
	result := s.tx.Where("id = ?", albumID).Limit(1).Find(&album)
	if result.Error != nil || result.RowsAffected == 0 {
		return nil, result.Error
	}
	return &album, nil
}

func (s gormCoverStore) IsMember(imageID, albumID uint64) (bool, error) {
	var count int64
	err := s.tx.Model(&Image{}).Where("id = ? AND album_id = ?", imageID, albumID).Count(&count).Error
	return count > 0, err
}

func (s gormCoverStore) LatestMember(albumID uint64) (*Image, error) {
	image := Image{}
	result := s.tx.Select("id", "created_at").
		Where("album_id = ?", albumID).
		Order("created_at DESC").Order("id DESC").
		Limit(1).Find(&image)
	if result.Error != nil || result.RowsAffected == 0 {
		return nil, result.Error
	}
	return &image, nil
}

// SetCover writes the cover only while it still matches the membership: an image
// must still be in the album, NULL only goes into an album without images
func (s gormCoverStore) SetCover(albumID uint64, imageID *uint64) error {
	update := s.tx.Model(&Album{}).Where("id = ?", albumID)
	var value any
	if imageID != nil {
		value = *imageID
		member := s.tx.Model(&Image{}).Select("id").Where("id = ? AND album_id = ?", *imageID, albumID)
		update = update.Where("EXISTS (?)", member)
	} else {
		members := s.tx.Model(&Image{}).Select("id").Where("album_id = ?", albumID)
		update = update.Where("NOT EXISTS (?)", members)
	}
	result := update.Update("cover_image_id", value)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStaleCover
	}
	return nil
}

// SnapshotCoverStore is an in-memory CoverStore over a fixed set of albums and images.
// Writes only change the snapshot, which makes it suitable for dry runs.
type SnapshotCoverStore struct {
	mu     sync.Mutex
	albums map[uint64]Album
	images []Image
	Writes int
}

func NewSnapshotCoverStore(albums []Album, images []Image) *SnapshotCoverStore {
	s := &SnapshotCoverStore{albums: make(map[uint64]Album, len(albums)), images: images}
	for _, album := range albums {
		s.albums[album.ID] = album
	}
	return s
}

// LoadCoverSnapshot reads all albums and the membership columns of all images
func LoadCoverSnapshot() (*SnapshotCoverStore, error) {
	var albums []Album
	if err := db.Instance.Find(&albums).Error; err != nil {
		return nil, err
	}
	var images []Image
	if err := db.Instance.Select("id", "album_id", "created_at").Where("album_id IS NOT NULL").Find(&images).Error; err != nil {
		return nil, err
	}
	return NewSnapshotCoverStore(albums, images), nil
}

func (s *SnapshotCoverStore) FindAlbum(albumID uint64) (*Album, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	album, ok := s.albums[albumID]
	if !ok {
		return nil, nil
	}
	return &album, nil
}

func (s *SnapshotCoverStore) IsMember(imageID, albumID uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, image := range s.images {
		if image.ID == imageID && image.AlbumID != nil && *image.AlbumID == albumID {
			return true, nil
		}
	}
	return false, nil
}

func (s *SnapshotCoverStore) LatestMember(albumID uint64) (*Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	members := []Image{}
	for _, image := range s.images {
		if image.AlbumID != nil && *image.AlbumID == albumID {
			members = append(members, image)
		}
	}
	return SelectFallbackCover(members), nil
}

func (s *SnapshotCoverStore) SetCover(albumID uint64, imageID *uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	album, ok := s.albums[albumID]
	if !ok {
		return nil
	}
	if imageID != nil {
		id := *imageID
		imageID = &id
	}
	album.CoverImageID = imageID
	s.albums[albumID] = album
	s.Writes++
	return nil
}

// AlbumIDs returns the snapshot's album IDs in ascending order
func (s *SnapshotCoverStore) AlbumIDs() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]uint64, 0, len(s.albums))
	for id := range s.albums {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func publishCoverChange(album *Album) {
	notify.PublishAlbumCover(album.UserID, album.ID, album.CoverImageID)
}

func coverRepairer() *CoverRepairer {
	return &CoverRepairer{Store: gormCoverStore{tx: db.Instance}, OnChange: publishCoverChange}
}

func recordRepair(op string, changed bool, err error) {
	result := metrics.ResultUnchanged
	if err != nil {
		result = metrics.ResultFailed
	} else if changed {
		result = metrics.ResultChanged
	}
	metrics.CoverRepairs.WithLabelValues(op, result).Inc()
}

// EnsureCoverIntegrity repairs the cover of the album against the database
func EnsureCoverIntegrity(albumID uint64) error {
	changed, err := coverRepairer().EnsureIntegrity(albumID)
	recordRepair(metrics.OpIntegrity, changed, err)
	return err
}

// EnsureCoverPresence gives the album a cover after candidateID was added to it
func EnsureCoverPresence(albumID, candidateID uint64) error {
	changed, err := coverRepairer().EnsurePresence(albumID, candidateID)
	recordRepair(metrics.OpPresence, changed, err)
	return err
}

// Repairs run after the primary write has been committed. A failed repair is only
// logged: the next membership change of the same album repairs it again.
func repairCoverIntegrity(albumID uint64) {
	if err := EnsureCoverIntegrity(albumID); err != nil {
		log.Printf("Album: %d, cover integrity repair failed: %v", albumID, err)
	}
}

func repairCoverPresence(albumID, candidateID uint64) {
	if err := EnsureCoverPresence(albumID, candidateID); err != nil {
		log.Printf("Album: %d, cover presence repair failed (candidate %d): %v", albumID, candidateID, err)
	}
}

// RepairAllCovers runs the integrity repair over every album and returns the IDs of
// the albums whose cover changed. With dryRun nothing is written.
func RepairAllCovers(dryRun bool) (changed []uint64, err error) {
	snapshot, err := LoadCoverSnapshot()
	if err != nil {
		return nil, err
	}
	repairer := coverRepairer()
	if dryRun {
		repairer = &CoverRepairer{Store: snapshot}
	}
	failed := 0
	for _, albumID := range snapshot.AlbumIDs() {
		ok, err := repairer.EnsureIntegrity(albumID)
		if !dryRun {
			recordRepair(metrics.OpIntegrity, ok, err)
		}
		if err != nil {
			log.Printf("Album: %d, cover integrity repair failed: %v", albumID, err)
			failed++
			continue
		}
		if ok {
			changed = append(changed, albumID)
		}
	}
	if failed > 0 {
		return changed, fmt.Errorf("%d album(s) could not be repaired", failed)
	}
	return changed, nil
}
