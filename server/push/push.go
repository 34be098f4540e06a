package push

import (
	"context"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// Client wraps firebase cloud messaging for device push notifications
type Client struct {
	messaging *messaging.Client
	testMode  bool
}

func NewClient(ctx context.Context, credentialsFile string, testMode bool) (*Client, error) {
	if testMode || credentialsFile == "" {
		return &Client{testMode: true}, nil
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, err
	}

	messagingClient, err := app.Messaging(ctx)
	if err != nil {
		return nil, err
	}

	return &Client{messaging: messagingClient}, nil
}

// SendMulticast pushes the same notification to every device token &
// returns how many deliveries succeeded/failed
func (c *Client) SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) (int, int, error) {
	if len(tokens) == 0 {
		return 0, 0, nil
	}

	if c.testMode {
		return len(tokens), 0, nil
	}

	response, err := c.messaging.SendEachForMulticast(ctx, &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	})
	if err != nil {
		return 0, len(tokens), err
	}

	return response.SuccessCount, response.FailureCount, nil
}
