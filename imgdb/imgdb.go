// Package imgdb implements the in-memory similarity index over the durable
// catalog: the inverted coefficient buckets, the dense image info table,
// and the engine coordinating them.
package imgdb // import "github.com/Gavin1937/danbooru-iqdb/imgdb"

import (
	"container/heap"
	"sync"

	"github.com/golang/glog"

	"github.com/Gavin1937/danbooru-iqdb/haar"
	"github.com/Gavin1937/danbooru-iqdb/imaging"
	"github.com/Gavin1937/danbooru-iqdb/schema"
	"github.com/Gavin1937/danbooru-iqdb/status"
)

// infoGrowth is how far past a new internal id the info table grows, to
// amortize reallocation.
const infoGrowth = 50000

// loadLogInterval is how often reload progress is logged, in records.
const loadLogInterval = 250000

// imageInfo is one slot of the dense info table, indexed by internal id.
// A slot whose avgl[0] is zero is a tombstone.  This conflates removal
// with a legal-but-unlikely all-black DC coefficient; an image whose true
// DC luminance is exactly zero is invisible to queries.
type imageInfo struct {
	postId int64
	avgl   [haar.NumChannels]float32
}

// Match is one query result.  Score is rescaled so that an exact
// signature match lands at 100; higher is more similar.
type Match struct {
	PostId int64
	Score  float32
}

// IQDB is the index engine.  All state is guarded by a single
// readers-writer lock: queries and lookups share it, adds, removes, and
// reloads hold it exclusively.  The catalog's own mutex is only ever taken
// under this lock.
type IQDB struct {
	mu         sync.RWMutex
	db         *schema.ImageDB
	buckets    bucketSet
	info       []imageInfo
	infoCount  int64
	lastPostId int64
}

// Open opens the catalog at path (":memory:" for ephemeral) and rebuilds
// the in-memory index from it.
func Open(path string) (*IQDB, status.S) {
	db, sts := schema.Open(path)
	if sts != nil {
		return nil, sts
	}
	x := &IQDB{db: db}
	if sts := x.loadDatabase(path); sts != nil {
		if err := db.Close(); err != nil {
			sts = status.WithSuppressed(sts, err)
		}
		return nil, sts
	}
	return x, nil
}

func (x *IQDB) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.db.Close()
}

// loadDatabase clears the in-memory structures and repopulates them from
// the catalog, keeping each record's stored internal id.  Records whose
// signature blob no longer parses are skipped with a warning.
func (x *IQDB) loadDatabase(path string) status.S {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.buckets = bucketSet{}
	x.info = nil
	x.infoCount = 0

	sts := x.db.ForEach(func(im *schema.Image) {
		sig, sts := im.Haar()
		if sts != nil {
			glog.Warningf("Skipping image %d (post #%d): can't parse signature: %v", im.Id, im.PostId, sts)
			return
		}
		x.addImageInMemory(im.Id, im.PostId, sig)

		if x.infoCount%loadLogInterval == 0 {
			glog.Infof("Loaded image %d (post #%d)...", im.Id, im.PostId)
		}
	})
	if sts != nil {
		return sts
	}

	max, sts := x.db.MaxPostId()
	if sts != nil {
		return sts
	}
	x.lastPostId = max

	glog.Infof("Loaded %d images from %s.", x.infoCount, path)
	return nil
}

// addImageInMemory registers an already-persisted image in the buckets and
// the info table, growing the table when the id is past its end.
func (x *IQDB) addImageInMemory(id, postId int64, sig *haar.Signature) {
	if id >= int64(len(x.info)) {
		glog.V(2).Infof("Growing info array (size=%d).", len(x.info))
		grown := make([]imageInfo, id+infoGrowth)
		copy(grown, x.info)
		x.info = grown
	}
	x.infoCount++

	x.buckets.add(sig, id)

	x.info[id] = imageInfo{
		postId: postId,
		avgl: [haar.NumChannels]float32{
			float32(sig.Avglf[0]),
			float32(sig.Avglf[1]),
			float32(sig.Avglf[2]),
		},
	}
}

func (x *IQDB) isDeleted(id int64) bool {
	return x.info[id].avgl[0] == 0
}

// AddImage fingerprints are persisted first and registered in memory only
// after the catalog commit, so a crash in between is repaired by the next
// reload.  A postId of 0 allocates lastPostId+1.  With replace set, an
// existing image under postId is removed first.  Returns the post id
// actually used.
func (x *IQDB) AddImage(postId int64, md5 string, sig *haar.Signature, replace bool) (int64, status.S) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if postId == 0 {
		postId = x.lastPostId + 1
	}
	if replace {
		if _, sts := x.removeLocked(postId); sts != nil {
			return 0, sts
		}
	}

	id, sts := x.db.Insert(postId, md5, sig)
	if sts != nil {
		if sts.Cause() == schema.ErrDuplicatePostId {
			max, msts := x.db.MaxPostId()
			if msts != nil {
				return 0, status.WithSuppressed(sts, msts)
			}
			x.lastPostId = max
		}
		return 0, sts
	}

	x.addImageInMemory(id, postId, sig)
	x.lastPostId++
	if postId > x.lastPostId {
		x.lastPostId = postId
	}

	glog.V(2).Infof("Added post #%d to memory and database (iqdb=%d haar=%s).", postId, id, sig.ToHash())
	return postId, nil
}

// RemoveImage removes the image stored under postId.  Returns false if it
// was not present.
func (x *IQDB) RemoveImage(postId int64) (bool, status.S) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.removeLocked(postId)
}

func (x *IQDB) removeLocked(postId int64) (bool, status.S) {
	im, sts := x.db.LookupByPostId(postId)
	if sts != nil {
		return false, sts
	}
	if im == nil {
		glog.Warningf("Couldn't remove post #%d; post not in database.", postId)
		return false, nil
	}

	sig, sts := im.Haar()
	if sts != nil {
		// The row is corrupt; it was never indexed, so only the catalog
		// needs cleaning.
		glog.Warningf("Removing post #%d with unparseable signature: %v", postId, sts)
	} else {
		x.buckets.remove(sig, im.Id)
	}
	if im.Id < int64(len(x.info)) && !x.isDeleted(im.Id) {
		x.infoCount--
		x.info[im.Id].avgl[0] = 0
	}
	if _, sts := x.db.DeleteByPostId(postId); sts != nil {
		return false, sts
	}
	// Removing a lower post id must not drag the counter below the ids
	// still stored, so only give back the counter's own value.
	if postId == x.lastPostId {
		max, sts := x.db.MaxPostId()
		if sts != nil {
			return false, sts
		}
		x.lastPostId = max
	}

	glog.V(2).Infof("Removed post #%d from memory and database.", postId)
	return true, nil
}

// LookupByPostId returns the catalog row for postId, or nil if absent.
func (x *IQDB) LookupByPostId(postId int64) (*schema.Image, status.S) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.db.LookupByPostId(postId)
}

// LookupByMd5 returns the catalog row for md5, or nil if absent.
func (x *IQDB) LookupByMd5(md5 string) (*schema.Image, status.S) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.db.LookupByMd5(md5)
}

// Status returns the live image count and the last post id.
func (x *IQDB) Status() (imageCount, lastPostId int64) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.infoCount, x.lastPostId
}

// QueryFromBlob fingerprints an image file and queries with the result.
func (x *IQDB) QueryFromBlob(blob []byte, numres int) ([]Match, status.S) {
	sig, sts := imaging.SignatureFromBlob(blob)
	if sts != nil {
		return nil, sts
	}
	return x.QueryFromSignature(sig, numres)
}

// QueryFromSignature returns up to numres live images ordered most similar
// first.
func (x *IQDB) QueryFromSignature(sig *haar.Signature, numres int) ([]Match, status.S) {
	if numres <= 0 {
		return nil, status.InvalidArgumentf(nil, "numres must be positive, not %d", numres)
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	scores := make([]float32, len(x.info))
	numColors := sig.NumColors()

	// DC term: distance between average luminance/chroma.
	for i := range x.info {
		var s float32
		for c := 0; c < numColors; c++ {
			s += haar.Weights[0][c] * abs32(x.info[i].avgl[c]-float32(sig.Avglf[c]))
		}
		scores[i] = s
	}

	// AC terms: every shared wavelet coefficient pulls the score down by
	// its bin weight.
	var scale float32
	eachCoef(sig, func(c int, coef int16) {
		bucket := *x.buckets.at(c, coef)
		if len(bucket) == 0 {
			return
		}
		m := coef
		if m < 0 {
			m = -m
		}
		weight := haar.Weights[haar.ImgBin[m]][c]
		scale -= weight
		for _, id := range bucket {
			scores[id] -= weight
		}
	})

	// Bounded selection: keep the numres lowest scores, worst at the top
	// of the heap so it can be evicted.
	pq := make(matchHeap, 0, numres)
	var i int64
	for ; len(pq) < numres && i < int64(len(scores)); i++ {
		if !x.isDeleted(i) {
			heap.Push(&pq, rawMatch{id: i, score: scores[i]})
		}
	}
	for ; i < int64(len(scores)); i++ {
		if !x.isDeleted(i) && scores[i] < pq[0].score {
			heap.Pop(&pq)
			heap.Push(&pq, rawMatch{id: i, score: scores[i]})
		}
	}

	if scale != 0 {
		scale = 1 / scale
	}

	out := make([]Match, len(pq))
	for n := len(pq) - 1; n >= 0; n-- {
		rm := heap.Pop(&pq).(rawMatch)
		out[n] = Match{
			PostId: x.info[rm.id].postId,
			Score:  rm.score * 100 * scale,
		}
	}
	return out, nil
}

type rawMatch struct {
	id    int64
	score float32
}

// matchHeap keeps the worst (highest) raw score at index 0.
type matchHeap []rawMatch

func (h matchHeap) Len() int            { return len(h) }
func (h matchHeap) Less(i, j int) bool  { return h[i].score > h[j].score }
func (h matchHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *matchHeap) Push(v interface{}) { *h = append(*h, v.(rawMatch)) }
func (h *matchHeap) Pop() interface{} {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
