// Package classify holds the semantic-classifier collaborators that label
// debit fragments with a payment purpose (款项用途分类) and a cash-flow
// statement item (现金流量表项目分类). The allocation core never calls these;
// the tracker service applies them to finished records.
package classify

import "context"

// Classifier labels one debit leg given its summary, account name and raw
// auxiliary text.
type Classifier interface {
	ClassifyPurpose(ctx context.Context, summary, account, auxiliary string) (string, error)
	ClassifyCashFlow(ctx context.Context, summary, account, auxiliary string) (string, error)
}

// Fallback labels used when no classification can be produced.
const (
	DefaultPurpose  = "其他"
	DefaultCashFlow = "其他活动"
)

// Noop labels everything with the fallback values. Useful when no classifier
// is configured.
type Noop struct{}

func (Noop) ClassifyPurpose(context.Context, string, string, string) (string, error) {
	return DefaultPurpose, nil
}

func (Noop) ClassifyCashFlow(context.Context, string, string, string) (string, error) {
	return DefaultCashFlow, nil
}
