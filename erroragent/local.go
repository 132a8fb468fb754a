package erroragent

import (
	"fmt"

	"github.com/teris-io/shortid"
	"github.com/tidwall/buntdb"

	"github.com/scality/hdclient-go/cmn"
)

// Local is a reference Agent backed by an embedded buntdb store: each
// intent message is persisted under "{topic}:{shortid}" so a separate
// janitor process can scan and consume it later. It exists to give the
// error-agent interface a concrete, runnable implementation beyond the
// Memory test double; production deployments are expected to supply their
// own Agent (e.g. one that publishes to errorAgent.kafkaBrokers).
type Local struct {
	db *buntdb.DB
}

// NewLocal opens (creating if absent) a buntdb store at path. Pass ":memory:"
// for a process-local, non-persistent store.
func NewLocal(path string) (*Local, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, cmn.Wrap(err, "erroragent: open buntdb store")
	}
	return &Local{db: db}, nil
}

func (l *Local) Send(records []Record) error {
	return l.db.Update(func(tx *buntdb.Tx) error {
		for _, r := range records {
			for _, msg := range r.Messages {
				id, err := shortid.Generate()
				if err != nil {
					return err
				}
				key := fmt.Sprintf("%s:%s", r.Topic, id)
				if _, _, err := tx.Set(key, msg, nil); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (l *Local) Close() error { return l.db.Close() }

// Pending returns every message persisted under topic, for a janitor to
// drain. Keys are not removed; callers that consume a message are expected
// to delete it via their own transaction.
func (l *Local) Pending(topic Topic) (messages []string, err error) {
	prefix := string(topic) + ":"
	err = l.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(prefix+"*", func(key, value string) bool {
			messages = append(messages, value)
			return true
		})
	})
	return messages, err
}
