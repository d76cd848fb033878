package models

// The write acknowledgements mirror the field names the storefront already
// reads (acknowledged, insertedId, deletedCount, ...), decoupled from the
// driver's own result types.

type InsertResult struct {
	Acknowledged bool        `json:"acknowledged"`
	InsertedID   interface{} `json:"insertedId"`
}

type DeleteResult struct {
	Acknowledged bool  `json:"acknowledged"`
	DeletedCount int64 `json:"deletedCount"`
}

type UpdateResult struct {
	Acknowledged  bool        `json:"acknowledged"`
	MatchedCount  int64       `json:"matchedCount"`
	ModifiedCount int64       `json:"modifiedCount"`
	UpsertedCount int64       `json:"upsertedCount"`
	UpsertedID    interface{} `json:"upsertedId"`
}

// PaymentResult is the POST /payments response: the record insertion and the
// cart reconciliation it triggered.
type PaymentResult struct {
	PaymentResult InsertResult `json:"paymentResult"`
	DeleteResult  DeleteResult `json:"deleteResult"`
}
