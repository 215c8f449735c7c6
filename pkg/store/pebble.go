package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"newsdb/pkg/logger"
	"newsdb/pkg/models"

	"github.com/cockroachdb/pebble"
)

var db *pebble.DB

// dbPath remembers where the DB was opened so DiskUsage can walk it.
var dbPath string

// schemaVersion is stamped into new databases so future key-layout
// changes can detect what they are upgrading from.
const schemaVersion = "1"

// Locator maps a message-id back to the group and article number it was
// stored under.
type Locator struct {
	Group  string `json:"group"`
	Number int64  `json:"number"`
}

// Key layout:
//
//	group:<name>:meta            group metadata JSON
//	group:<name>:art:<number>    overview row JSON, number zero-padded to 20
//	idx:msgid:<message-id>       Locator JSON
//	meta:<key>                   server-level metadata
func groupKey(name string) []byte {
	return []byte("group:" + name + ":meta")
}

func articleKey(group string, number int64) []byte {
	return []byte(fmt.Sprintf("group:%s:art:%020d", group, number))
}

func articlePrefix(group string) []byte {
	return []byte("group:" + group + ":art:")
}

func msgIDKey(id string) []byte {
	return []byte("idx:msgid:" + id)
}

// Open opens (or creates) a Pebble database at the given path and keeps
// a global handle for simple usage in this package.
func Open(path string) error {
	var err error
	logger.Info("opening_pebble_db", "path", path)
	db, err = pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "error", err)
		return err
	}
	dbPath = path
	if v, verr := GetMeta("schema_version"); verr != nil || v == "" {
		if serr := SetMeta("schema_version", schemaVersion); serr != nil {
			return serr
		}
	}
	logger.Info("pebble_opened", "path", path)
	return nil
}

// Close closes the opened pebble DB if present.
func Close() error {
	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		return err
	}
	db = nil
	logger.Info("pebble_closed")
	return nil
}

// Ready reports whether the store is opened and ready.
func Ready() bool {
	return db != nil
}

// SaveGroup stores group metadata under its reserved key.
func SaveGroup(g models.Group) error {
	if db == nil {
		return fmt.Errorf("pebble not opened; call store.Open first")
	}
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("failed to marshal group: %w", err)
	}
	if err := db.Set(groupKey(g.Name), data, pebble.Sync); err != nil {
		logger.Error("save_group_failed", "group", g.Name, "error", err)
		return err
	}
	logger.Info("group_saved", "group", g.Name, "high", g.High)
	return nil
}

// GetGroup returns the stored group metadata JSON for a given name.
func GetGroup(name string) (string, error) {
	if db == nil {
		return "", fmt.Errorf("pebble not opened; call store.Open first")
	}
	v, closer, err := db.Get(groupKey(name))
	if err != nil {
		return "", err
	}
	if closer != nil {
		defer closer.Close()
	}
	return string(v), nil
}

// ListGroups returns all saved group metadata values.
func ListGroups() ([]string, error) {
	if db == nil {
		return nil, fmt.Errorf("pebble not opened; call store.Open first")
	}
	prefix := []byte("group:")
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []string
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		k := string(iter.Key())
		if strings.HasSuffix(k, ":meta") {
			v := append([]byte(nil), iter.Value()...)
			out = append(out, string(v))
		}
	}
	return out, iter.Error()
}

// DeleteGroup removes the group metadata together with every article and
// message-id index entry stored under it.
func DeleteGroup(name string) error {
	if db == nil {
		return fmt.Errorf("pebble not opened; call store.Open first")
	}
	if _, err := DeleteArticlesBelow(name, math.MaxInt64); err != nil {
		return err
	}
	if err := db.Delete(groupKey(name), pebble.Sync); err != nil {
		logger.Error("delete_group_failed", "group", name, "error", err)
		return err
	}
	logger.Info("group_deleted", "group", name)
	return nil
}

// SaveArticle stores one overview row under its article number and indexes
// it by message-id. Rows without a message-id get no index entry.
func SaveArticle(group string, art models.Article) error {
	if db == nil {
		return fmt.Errorf("pebble not opened; call store.Open first")
	}
	data, err := json.Marshal(art)
	if err != nil {
		return fmt.Errorf("failed to marshal article: %w", err)
	}
	key := articleKey(group, art.Number)
	if err := db.Set(key, data, pebble.Sync); err != nil {
		logger.Error("save_article_failed", "group", group, "number", art.Number, "error", err)
		return err
	}
	logger.Debug("article_saved", "group", group, "number", art.Number, "msg_id", art.MessageID)

	if art.MessageID != "" {
		loc, _ := json.Marshal(Locator{Group: group, Number: art.Number})
		if err := db.Set(msgIDKey(art.MessageID), loc, pebble.Sync); err != nil {
			logger.Error("save_article_index_failed", "msg_id", art.MessageID, "error", err)
			return err
		}
	}
	return nil
}

// GetArticle returns the stored overview JSON for one article number.
func GetArticle(group string, number int64) (string, error) {
	if db == nil {
		return "", fmt.Errorf("pebble not opened; call store.Open first")
	}
	v, closer, err := db.Get(articleKey(group, number))
	if err != nil {
		return "", err
	}
	if closer != nil {
		defer closer.Close()
	}
	return string(v), nil
}

// ListArticles returns overview rows for a group in article-number order.
// low and high bound the numbers inclusively; zero means unbounded. limit
// caps the row count when positive.
func ListArticles(group string, low, high int64, limit int) ([]string, error) {
	if db == nil {
		return nil, fmt.Errorf("pebble not opened; call store.Open first")
	}
	prefix := articlePrefix(group)
	start := prefix
	if low > 0 {
		start = articleKey(group, low)
	}
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []string
	for iter.SeekGE(start); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		if high > 0 {
			n, perr := strconv.ParseInt(string(iter.Key()[len(prefix):]), 10, 64)
			if perr == nil && n > high {
				break
			}
		}
		v := append([]byte(nil), iter.Value()...)
		out = append(out, string(v))
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, iter.Error()
}

// ListArticleNumbers returns the stored article numbers for a group in
// ascending order without copying the row values.
func ListArticleNumbers(group string) ([]int64, error) {
	if db == nil {
		return nil, fmt.Errorf("pebble not opened; call store.Open first")
	}
	prefix := articlePrefix(group)
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []int64
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		n, perr := strconv.ParseInt(string(iter.Key()[len(prefix):]), 10, 64)
		if perr != nil {
			continue
		}
		out = append(out, n)
	}
	return out, iter.Error()
}

// CountArticles returns how many overview rows a group holds.
func CountArticles(group string) (int, error) {
	nums, err := ListArticleNumbers(group)
	if err != nil {
		return 0, err
	}
	return len(nums), nil
}

// DeleteArticlesBelow removes every article with a number strictly below
// floor, together with its message-id index entry, and reports how many
// rows were removed.
func DeleteArticlesBelow(group string, floor int64) (int, error) {
	if db == nil {
		return 0, fmt.Errorf("pebble not opened; call store.Open first")
	}
	prefix := articlePrefix(group)
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return 0, err
	}

	var keys [][]byte
	var ids []string
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		n, perr := strconv.ParseInt(string(iter.Key()[len(prefix):]), 10, 64)
		if perr == nil && n >= floor {
			break
		}
		keys = append(keys, append([]byte(nil), iter.Key()...))
		var row struct {
			MessageID string `json:"message_id"`
		}
		if json.Unmarshal(iter.Value(), &row) == nil && row.MessageID != "" {
			ids = append(ids, row.MessageID)
		}
	}
	if err := iter.Error(); err != nil {
		iter.Close()
		return 0, err
	}
	if err := iter.Close(); err != nil {
		return 0, err
	}

	for _, k := range keys {
		if err := db.Delete(k, pebble.Sync); err != nil {
			logger.Error("delete_article_failed", "key", string(k), "error", err)
			return 0, err
		}
	}
	for _, id := range ids {
		if err := db.Delete(msgIDKey(id), pebble.Sync); err != nil {
			logger.Error("delete_article_index_failed", "msg_id", id, "error", err)
			return 0, err
		}
	}
	if len(keys) > 0 {
		logger.Info("articles_expired", "group", group, "floor", floor, "removed", len(keys))
	}
	return len(keys), nil
}

// LookupMessageID resolves a message-id to the group and article number
// it was ingested under.
func LookupMessageID(id string) (Locator, error) {
	var loc Locator
	if db == nil {
		return loc, fmt.Errorf("pebble not opened; call store.Open first")
	}
	v, closer, err := db.Get(msgIDKey(id))
	if err != nil {
		return loc, err
	}
	if closer != nil {
		defer closer.Close()
	}
	if err := json.Unmarshal(v, &loc); err != nil {
		return loc, fmt.Errorf("invalid locator for %s: %w", id, err)
	}
	return loc, nil
}

// SetMeta stores a server-level metadata value.
func SetMeta(key, value string) error {
	if db == nil {
		return fmt.Errorf("pebble not opened; call store.Open first")
	}
	if err := db.Set([]byte("meta:"+key), []byte(value), pebble.Sync); err != nil {
		logger.Error("save_meta_failed", "key", key, "error", err)
		return err
	}
	logger.Debug("save_meta_ok", "key", key, "len", len(value))
	return nil
}

// GetMeta returns a server-level metadata value.
func GetMeta(key string) (string, error) {
	if db == nil {
		return "", fmt.Errorf("pebble not opened; call store.Open first")
	}
	v, closer, err := db.Get([]byte("meta:" + key))
	if err != nil {
		return "", err
	}
	if closer != nil {
		defer closer.Close()
	}
	return string(v), nil
}
