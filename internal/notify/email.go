package notify

import (
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"quizbox-service/internal/domain"
)

// AdmissionNotifier emails the institute inbox when a new admission form
// arrives. With no from/to address configured it becomes a no-op so the rest
// of the service runs without AWS credentials.
type AdmissionNotifier struct {
	client *sesv2.Client
	from   string
	to     string
}

func NewAdmissionNotifier(ctx context.Context, region, from, to string) (*AdmissionNotifier, error) {
	if from == "" || to == "" {
		log.Println("admission email disabled: from/to address not configured")
		return &AdmissionNotifier{}, nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	log.Printf("admission email enabled: from=%s, region=%s", from, region)
	return &AdmissionNotifier{
		client: sesv2.NewFromConfig(cfg),
		from:   from,
		to:     to,
	}, nil
}

// Enabled reports whether sends will actually go out.
func (n *AdmissionNotifier) Enabled() bool {
	return n.client != nil
}

// SendAdmissionReceived sends a plain-text summary of the submitted form.
func (n *AdmissionNotifier) SendAdmissionReceived(ctx context.Context, admission domain.Admission) error {
	if !n.Enabled() {
		return nil
	}

	subject := fmt.Sprintf("New admission: %s (%s)", admission.Name, admission.Course)
	body := fmt.Sprintf(
		"Course: %s\nName: %s\nGuardian: %s\nDate of birth: %s\nMedium: %s\nGender: %s\nMarital status: %s\nAddress: %s, %s, %s\nPhone: %s\nSubmitted: %s\n",
		admission.Course, admission.Name, admission.GuardianName, admission.DateOfBirth,
		admission.Medium, admission.Gender, admission.MaritalStatus,
		admission.Address, admission.City, admission.District,
		admission.Phone, admission.SubmittedAt.Format("2006-01-02 15:04:05"))

	_, err := n.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(n.from),
		Destination: &types.Destination{
			ToAddresses: []string{n.to},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject)},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(body)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("send admission email: %w", err)
	}
	return nil
}
