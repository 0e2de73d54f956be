package database

import "testing"

func TestNewMongoRejectsMalformedURI(t *testing.T) {
	client, err := NewMongo("not-a-mongo-uri")
	if err == nil {
		t.Fatal("expected error for malformed URI")
	}
	if client != nil {
		t.Fatal("client must be nil on failure")
	}
}
