package ses

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	"hydromet/internal/port"
)

type SendEmailFunc func(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)

func (f SendEmailFunc) SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	return f(ctx, in, optFns...)
}

func NewSenderWithClient(client SendEmailFunc, from, fromName, to string) port.EmailSender {
	return newSender(client, from, fromName, to)
}
