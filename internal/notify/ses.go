// Package notify – Amazon SES transport.
package notify

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"golang.org/x/text/language"
)

// SESAPI is the slice of the SES client the notifier needs; tests substitute
// a fake.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESNotifier sends confirmation emails through Amazon SES.
type SESNotifier struct {
	client SESAPI
	sender string
	locale language.Tag
}

// Compile-time check: SESNotifier implements Notifier.
var _ Notifier = (*SESNotifier)(nil)

// NewSESNotifier builds a notifier backed by a real SES client in the given
// region, sending from the verified sender address. The locale selects the
// confirmation copy and is fixed per deployment.
func NewSESNotifier(ctx context.Context, region, sender string, locale language.Tag) (*SESNotifier, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &SESNotifier{client: ses.NewFromConfig(cfg), sender: sender, locale: locale}, nil
}

// NewSESNotifierWithClient is the injection point used by tests.
func NewSESNotifierWithClient(client SESAPI, sender string, locale language.Tag) *SESNotifier {
	return &SESNotifier{client: client, sender: sender, locale: locale}
}

// Send implements Notifier.
func (n *SESNotifier) Send(ctx context.Context, c Confirmation) error {
	input := &ses.SendEmailInput{
		Source: aws.String(n.sender),
		Destination: &types.Destination{
			ToAddresses: []string{c.Email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(Subject(n.locale, c.Destination)),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data:    aws.String(Body(n.locale, c)),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}
	_, err := n.client.SendEmail(ctx, input)
	return err
}
