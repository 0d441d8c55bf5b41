package session

import (
	"fmt"
	"os"
	"sync"

	"github.com/meilisearch/meilisearch-go"

	"github.com/liquidinvestigations/hoover3-sub000/model"
)

var (
	searchOnce   sync.Once
	searchClient meilisearch.ServiceManager
)

// GlobalSearchClient returns the process-wide Meilisearch client, reading
// MEILI_URL / MEILI_MASTER_KEY the way the original's meilisearch.rs does,
// with the same localhost/placeholder-key defaults for local development.
func GlobalSearchClient() meilisearch.ServiceManager {
	searchOnce.Do(func() {
		url := os.Getenv("MEILI_URL")
		if url == "" {
			url = "http://localhost:7700"
		}
		key := os.Getenv("MEILI_MASTER_KEY")
		if key == "" {
			key = "1234"
		}
		searchClient = meilisearch.New(url, meilisearch.WithAPIKey(key))
	})
	return searchClient
}

// SearchSession is the Meilisearch session bound to one collection's index
// (index name = collection id, per the Collection data-model invariant).
type SearchSession struct {
	Index meilisearch.IndexManager
}

// CollectionSearchSession returns a handle to the index for collection id.
// It does not create the index; EnsureIndex does.
func CollectionSearchSession(id model.Identifier) *SearchSession {
	client := GlobalSearchClient()
	return &SearchSession{Index: client.Index(id.String())}
}

// EnsureIndex creates the collection's Meilisearch index if it does not
// already exist, idempotently, with "id" as the primary key field (matching
// the fan-out's search document shape, whose "id" field holds the row
// fingerprint).
func EnsureIndex(id model.Identifier) error {
	client := GlobalSearchClient()
	_, err := client.GetIndex(id.String())
	if err == nil {
		return nil
	}
	task, err := client.CreateIndex(&meilisearch.IndexConfig{
		Uid:        id.String(),
		PrimaryKey: "id",
	})
	if err != nil {
		return fmt.Errorf("session: create search index %s: %w", id, err)
	}
	_, err = client.WaitForTask(task.TaskUID, 0)
	if err != nil {
		return fmt.Errorf("session: wait for index creation %s: %w", id, err)
	}
	return nil
}
