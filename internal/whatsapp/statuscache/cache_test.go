package statuscache

import (
	"sync"
	"testing"
	"time"

	"view_bot/internal/whatsapp/media"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"google.golang.org/protobuf/proto"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestCache(ttl time.Duration) (*Cache, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)}
	cache := New(ttl)
	cache.now = clock.Now
	return cache, clock
}

func imageStatus() *waE2E.Message {
	return &waE2E.Message{ImageMessage: &waE2E.ImageMessage{Mimetype: proto.String("image/jpeg")}}
}

func TestKey(t *testing.T) {
	assert.Equal(t, "S1|P1", Key("S1", "P1"))
	assert.Equal(t, "S1|", Key("S1", ""))
}

func TestPutOverwrites(t *testing.T) {
	cache, _ := newTestCache(time.Hour)

	cache.Put("S1|P1", Entry{MessageID: "S1", MimeType: "image/jpeg"})
	cache.Put("S1|P1", Entry{MessageID: "S1", MimeType: "video/mp4"})

	entry, ok := cache.Get("S1|P1")
	require.True(t, ok)
	assert.Equal(t, "video/mp4", entry.MimeType)
	assert.Equal(t, 1, cache.Len())
}

func TestTTLAndSweep(t *testing.T) {
	cache, clock := newTestCache(24 * time.Hour)
	cache.Put("S1|P1", Entry{MessageID: "S1"})

	clock.Advance(23 * time.Hour)
	_, ok := cache.Get("S1|P1")
	assert.True(t, ok, "entry should be retrievable before TTL")

	// 读取不会刷新时间
	clock.Advance(time.Hour)
	_, ok = cache.Get("S1|P1")
	assert.False(t, ok, "entry at TTL should read as absent")
	assert.Equal(t, 1, cache.Len())

	assert.Equal(t, 1, cache.Sweep(clock.Now()))
	assert.Equal(t, 0, cache.Len())
	_, ok = cache.Lookup("S1", "P1")
	assert.False(t, ok)
}

func TestSweepKeepsFreshEntries(t *testing.T) {
	cache, clock := newTestCache(time.Hour)
	cache.Put("old|a", Entry{})
	clock.Advance(30 * time.Minute)
	cache.Put("new|a", Entry{})
	clock.Advance(31 * time.Minute)

	assert.Equal(t, 1, cache.Sweep(clock.Now()))
	_, ok := cache.Get("new|a")
	assert.True(t, ok)
}

func TestLookupFallback(t *testing.T) {
	cache, _ := newTestCache(time.Hour)
	cache.Put(Key("S2", ""), Entry{MessageID: "S2"})

	entry, ok := cache.Lookup("S2", "5491100000001@s.whatsapp.net")
	require.True(t, ok)
	assert.Equal(t, types.MessageID("S2"), entry.MessageID)

	_, ok = cache.Lookup("S3", "5491100000001@s.whatsapp.net")
	assert.False(t, ok)
}

func TestLookupPrefersPrimaryKey(t *testing.T) {
	cache, _ := newTestCache(time.Hour)
	cache.Put(Key("S1", "P1"), Entry{MimeType: "primary"})
	cache.Put(Key("S1", ""), Entry{MimeType: "fallback"})

	entry, ok := cache.Lookup("S1", "P1")
	require.True(t, ok)
	assert.Equal(t, "primary", entry.MimeType)
}

func TestFromStatus(t *testing.T) {
	author := types.NewADJID("5491100000001", 0, 12)
	info := types.MessageInfo{
		ID: "S1",
		MessageSource: types.MessageSource{
			Chat:   types.StatusBroadcastJID,
			Sender: author,
		},
	}

	key, entry, ok := FromStatus(info, imageStatus())
	require.True(t, ok)
	assert.Equal(t, "S1|5491100000001@s.whatsapp.net", key)
	assert.Equal(t, media.KindImage, entry.Kind)
	assert.Equal(t, "image/jpeg", entry.MimeType)

	desc, ok := entry.Descriptor()
	require.True(t, ok)
	assert.Equal(t, types.MessageID("S1"), desc.Source.MessageID)
	assert.Equal(t, "5491100000001", desc.Source.Sender.User)
}

func TestFromStatusLIDSenderIndexesBothForms(t *testing.T) {
	phone := types.NewJID("5491100000001", types.DefaultUserServer)
	lid := types.NewJID("208000000000001", types.HiddenUserServer)

	for name, src := range map[string]types.MessageSource{
		"LIDWithPhoneAlt": {Chat: types.StatusBroadcastJID, Sender: lid, SenderAlt: phone},
		"PhoneWithLIDAlt": {Chat: types.StatusBroadcastJID, Sender: phone, SenderAlt: lid},
	} {
		t.Run(name, func(t *testing.T) {
			cache, clock := newTestCache(time.Hour)
			key, entry, ok := FromStatus(types.MessageInfo{ID: "S5", MessageSource: src}, imageStatus())
			require.True(t, ok)
			assert.Equal(t, "S5|5491100000001@s.whatsapp.net", key)
			assert.Equal(t, "208000000000001@lid", entry.AltAuthor)

			cache.Put(key, entry)
			assert.Equal(t, 1, cache.Len())

			_, ok = cache.Lookup("S5", phone.String())
			assert.True(t, ok)
			_, ok = cache.Lookup("S5", lid.String())
			assert.True(t, ok)

			clock.Advance(time.Hour)
			assert.Equal(t, 1, cache.Sweep(clock.Now()))
			_, ok = cache.Lookup("S5", lid.String())
			assert.False(t, ok)
			assert.Empty(t, cache.aliases)
		})
	}
}

func TestFromStatusViewOnceVideo(t *testing.T) {
	msg := &waE2E.Message{ViewOnceMessageV2: &waE2E.FutureProofMessage{Message: &waE2E.Message{
		VideoMessage: &waE2E.VideoMessage{Mimetype: proto.String("video/mp4")},
	}}}
	info := types.MessageInfo{ID: "S9", MessageSource: types.MessageSource{Chat: types.StatusBroadcastJID}}

	key, entry, ok := FromStatus(info, msg)
	require.True(t, ok)
	assert.Equal(t, "S9|status@broadcast", key)
	assert.Equal(t, media.KindVideo, entry.Kind)
	assert.Equal(t, media.EnvelopeViewOnceV2, entry.Envelope)
}

func TestFromStatusRejects(t *testing.T) {
	status := types.MessageSource{Chat: types.StatusBroadcastJID, Sender: types.NewJID("1", types.DefaultUserServer)}

	cases := []struct {
		name string
		info types.MessageInfo
		msg  *waE2E.Message
	}{
		{"NotStatus", types.MessageInfo{ID: "S1", MessageSource: types.MessageSource{Chat: types.NewJID("1", types.DefaultUserServer)}}, imageStatus()},
		{"MissingID", types.MessageInfo{MessageSource: status}, imageStatus()},
		{"TextStatus", types.MessageInfo{ID: "S1", MessageSource: status}, &waE2E.Message{ExtendedTextMessage: &waE2E.ExtendedTextMessage{Text: proto.String("hi")}}},
		{"AudioStatus", types.MessageInfo{ID: "S1", MessageSource: status}, &waE2E.Message{AudioMessage: &waE2E.AudioMessage{}}},
		{"NilMessage", types.MessageInfo{ID: "S1", MessageSource: status}, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, ok := FromStatus(tc.info, tc.msg)
			assert.False(t, ok)
		})
	}
}

func TestConcurrentAccess(t *testing.T) {
	cache, clock := newTestCache(time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				cache.Put(Key("S", "P"), Entry{})
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				cache.Lookup("S", "P")
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				cache.Sweep(clock.Now())
			}
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, cache.Len(), 1)
}

func TestSweeperStartStop(t *testing.T) {
	cache := New(time.Millisecond)
	cache.Put("S1|P1", Entry{CachedAt: time.Now().Add(-time.Hour)})

	sweeper := NewSweeper(cache, 5*time.Millisecond)
	sweeper.Start()
	sweeper.Start()

	assert.Eventually(t, func() bool { return cache.Len() == 0 }, time.Second, 5*time.Millisecond)

	sweeper.Stop()
	sweeper.Stop()
}
