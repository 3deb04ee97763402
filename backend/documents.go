package backend

import (
	"fmt"
	"sync"
	"time"
)

// DocumentRecord is a single (client_id, doc_type) document.
type DocumentRecord struct {
	ClientID   string         `yaml:"client_id"`
	DocType    string         `yaml:"doc_type"`
	Status     string         `yaml:"status"`
	Verified   bool           `yaml:"verified"`
	Valid      bool           `yaml:"valid"`
	UploadedAt time.Time      `yaml:"uploaded_at"`
	Data       map[string]any `yaml:"data"`
}

func docKey(clientID, docType string) string { return clientID + "|" + docType }

// DocumentStore is a mapping from (client_id, doc_type) to DocumentRecord,
// supporting read, idempotent-upsert create, and update.
type DocumentStore struct {
	mu   sync.Mutex
	docs map[string]DocumentRecord
}

// NewDocumentStore seeds a DocumentStore from fixture records.
func NewDocumentStore(records []DocumentRecord) *DocumentStore {
	d := &DocumentStore{docs: make(map[string]DocumentRecord, len(records))}
	for _, r := range records {
		d.docs[docKey(r.ClientID, r.DocType)] = r
	}
	return d
}

// Get returns the document for (clientID, docType), or false if absent.
func (d *DocumentStore) Get(clientID, docType string) (DocumentRecord, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.docs[docKey(clientID, docType)]
	return r, ok
}

// Create idempotently upserts a document: a second create for the same key
// overwrites data rather than erroring, matching the Registry's
// create_document contract ("idempotent upsert").
func (d *DocumentStore) Create(clientID, docType string, data map[string]any, now time.Time) DocumentRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec := DocumentRecord{
		ClientID:   clientID,
		DocType:    docType,
		Status:     "submitted",
		Valid:      true,
		UploadedAt: now,
		Data:       data,
	}
	if existing, ok := d.docs[docKey(clientID, docType)]; ok {
		rec.Status = existing.Status
		rec.Valid = existing.Valid
		rec.Verified = existing.Verified
	}
	d.docs[docKey(clientID, docType)] = rec
	return rec
}

// Update merges data into an existing document. It reports false if the
// document does not exist yet.
func (d *DocumentStore) Update(clientID, docType string, data map[string]any, now time.Time) (DocumentRecord, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, ok := d.docs[docKey(clientID, docType)]
	if !ok {
		return DocumentRecord{}, false
	}
	if rec.Data == nil {
		rec.Data = map[string]any{}
	}
	for k, v := range data {
		rec.Data[k] = v
	}
	rec.UploadedAt = now
	d.docs[docKey(clientID, docType)] = rec
	return rec, true
}

// Validate reports whether the document is valid and, if not, a short list
// of reasons.
func (d *DocumentStore) Validate(clientID, docType string) (valid bool, errs []string, found bool) {
	rec, ok := d.Get(clientID, docType)
	if !ok {
		return false, nil, false
	}
	if !rec.Valid {
		return false, []string{fmt.Sprintf("%s failed validation", docType)}, true
	}
	return true, nil, true
}
