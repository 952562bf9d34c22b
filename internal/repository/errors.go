package repository

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	appErrors "dreamlog-backend/pkg/errors"
)

// FromDynamoDB maps a DynamoDB client error onto the application taxonomy. A failed condition
// becomes a persistence conflict. Everything else, including throttling and validation errors,
// is a persistence failure since the branch cannot complete either way.
func FromDynamoDB(operation string, err error) error {
	if err == nil {
		return nil
	}

	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return appErrors.NewPersistenceConflict(fmt.Sprintf("%s: condition failed", operation), err)
	}

	var tce *types.TransactionCanceledException
	if errors.As(err, &tce) {
		if ConditionFailed(err) {
			return appErrors.NewPersistenceConflict(fmt.Sprintf("%s: transaction condition failed", operation), err)
		}
		return appErrors.NewPersistenceFailure(fmt.Sprintf("%s: transaction cancelled", operation), err)
	}

	var ae smithy.APIError
	if errors.As(err, &ae) {
		switch ae.ErrorCode() {
		case "ConditionalCheckFailedException":
			return appErrors.NewPersistenceConflict(fmt.Sprintf("%s: condition failed", operation), err)
		case "ProvisionedThroughputExceededException", "RequestLimitExceeded", "ThrottlingException":
			return appErrors.NewPersistenceFailure(fmt.Sprintf("%s: throttled", operation), err)
		case "ResourceNotFoundException":
			return appErrors.NewPersistenceFailure(fmt.Sprintf("%s: table not found", operation), err)
		default:
			return appErrors.NewPersistenceFailure(fmt.Sprintf("%s: %s", operation, ae.ErrorCode()), err)
		}
	}

	return appErrors.NewPersistenceFailure(operation, err)
}

// ConditionFailed reports whether err is a failed condition, either on a single write or on any
// item of a cancelled transaction.
func ConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return true
	}
	var tce *types.TransactionCanceledException
	if errors.As(err, &tce) {
		for _, r := range tce.CancellationReasons {
			if r.Code != nil && *r.Code == "ConditionalCheckFailed" {
				return true
			}
		}
	}
	return false
}
