package driver

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/quicksend/internal/client/client"
	"github.com/dmitrijs2005/quicksend/internal/common"
	"github.com/dmitrijs2005/quicksend/internal/netx"
	"github.com/dmitrijs2005/quicksend/internal/tier"
)

var ErrCancelled = errors.New("upload cancelled")

// Category is the user-facing class of an upload failure.
type Category string

const (
	CategoryNone            Category = ""
	CategoryFileTooLarge    Category = "file_too_large"
	CategoryMonthlyLimit    Category = "monthly_limit"
	CategoryTierNotEligible Category = "tier_not_eligible"
	CategoryCancelled       Category = "cancelled"
	CategoryNetwork         Category = "network"
	CategoryServer          Category = "server"
)

func Classify(err error) Category {
	switch {
	case err == nil:
		return CategoryNone
	case errors.Is(err, common.ErrFileTooLarge):
		return CategoryFileTooLarge
	case errors.Is(err, common.ErrMonthlyLimitReached):
		return CategoryMonthlyLimit
	case errors.Is(err, common.ErrTierNotEligible):
		return CategoryTierNotEligible
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled):
		return CategoryCancelled
	case errors.Is(err, client.ErrUnavailable),
		errors.Is(err, client.ErrRateLimited),
		errors.Is(err, netx.ErrTransport),
		errors.Is(err, context.DeadlineExceeded):
		return CategoryNetwork
	default:
		return CategoryServer
	}
}

// OffersUpgrade reports whether the category is fixed by a bigger plan.
func (c Category) OffersUpgrade() bool {
	return c == CategoryFileTooLarge || c == CategoryMonthlyLimit || c == CategoryTierNotEligible
}

// Alert is what the CLI shows for a failed upload.
type Alert struct {
	Category     Category
	Title        string
	Message      string
	OfferUpgrade bool
}

// AlertFor builds the alert for err. t is the tier the attempt ran under and
// only fills in plan names when err carries none.
func AlertFor(err error, t tier.Tier) Alert {
	c := Classify(err)
	a := Alert{Category: c, OfferUpgrade: c.OffersUpgrade()}

	var le *common.LimitError
	if errors.As(err, &le) && le.Tier != "" {
		t = tier.Parse(le.Tier)
	}
	plan := t.DisplayName()
	limits := tier.LimitsFor(t)

	switch c {
	case CategoryFileTooLarge:
		limit, actual := limits.MaxFileSize, int64(0)
		if le != nil {
			if le.Limit > 0 {
				limit = le.Limit
			}
			actual = le.Actual
		}
		a.Title = "File Too Large"
		a.Message = fmt.Sprintf("Your %s plan has a %s file size limit. The selected file is %s. Upgrade your plan to upload larger files.",
			plan, tier.FormatBytes(limit), tier.FormatBytes(actual))
	case CategoryMonthlyLimit:
		limit := int64(limits.MaxUploadsPerMonth)
		if le != nil && le.Limit > 0 {
			limit = le.Limit
		}
		a.Title = "Monthly Upload Limit Reached"
		a.Message = fmt.Sprintf("You've reached your monthly upload limit of %d files for your %s plan. Upgrade your plan to upload more files.",
			limit, plan)
	case CategoryTierNotEligible:
		a.Title = "Upgrade Required"
		a.Message = fmt.Sprintf("Large-file uploads are not available on the %s plan.", plan)
	case CategoryCancelled:
		a.Title = "Upload Cancelled"
		a.Message = "The upload was cancelled."
	case CategoryNetwork:
		a.Title = "Network Error"
		a.Message = "Could not reach the server. Check your connection and try again."
	case CategoryServer:
		a.Title = "Upload Failed"
		a.Message = fmt.Sprintf("The server could not complete the upload: %v", err)
	}
	return a
}
