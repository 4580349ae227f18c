package ddbstore

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/acksell/ddblite/ddberr"
)

const maxBatchWriteRequests = 25

// BatchWriteItem performs multiple put/delete operations without condition
// expressions, matching the real API. Unlike TransactWriteItems this isn't
// all-or-nothing: a per-request failure reports that request back in
// UnprocessedItems instead of aborting the whole call, accumulating an
// `unprocessed` map as it goes.
func (s *Store) BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	if params == nil || params.RequestItems == nil {
		return nil, ddberr.Validation("request items is required")
	}

	total := 0
	for _, reqs := range params.RequestItems {
		total += len(reqs)
	}
	if total > maxBatchWriteRequests {
		return nil, ddberr.Validation("too many write requests for a single BatchWriteItem call (max %d)", maxBatchWriteRequests)
	}

	s.lock()
	defer s.unlock()

	unprocessed := map[string][]types.WriteRequest{}

	for tableName, reqs := range params.RequestItems {
		t, err := s.getTableLocked(tableName)
		if err != nil {
			return nil, err
		}
		for _, req := range reqs {
			switch {
			case req.PutRequest != nil:
				pk, sk, err := itemKeyCollation(t.Keys, req.PutRequest.Item)
				if err != nil {
					unprocessed[tableName] = append(unprocessed[tableName], req)
					continue
				}
				_, existed, err := s.fetchItemRowLocked(t, pk, sk)
				if err != nil {
					unprocessed[tableName] = append(unprocessed[tableName], req)
					continue
				}
				if err := s.writeItemRowLocked(t, pk, sk, req.PutRequest.Item); err != nil {
					unprocessed[tableName] = append(unprocessed[tableName], req)
					continue
				}
				if !existed {
					t.ItemCount++
				}
				s.capacity.record(tableName, 1)

			case req.DeleteRequest != nil:
				pk, sk, err := itemKeyCollation(t.Keys, req.DeleteRequest.Key)
				if err != nil {
					unprocessed[tableName] = append(unprocessed[tableName], req)
					continue
				}
				_, existed, err := s.fetchItemRowLocked(t, pk, sk)
				if err != nil {
					unprocessed[tableName] = append(unprocessed[tableName], req)
					continue
				}
				if existed {
					if err := s.deleteItemAndIndexEntries(t.Name, t, pk, sk); err != nil {
						unprocessed[tableName] = append(unprocessed[tableName], req)
						continue
					}
					t.ItemCount--
				}
				s.capacity.record(tableName, 1)
			}
		}
	}

	return &dynamodb.BatchWriteItemOutput{UnprocessedItems: unprocessed}, nil
}
