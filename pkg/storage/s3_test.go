package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWalkthroughKey(t *testing.T) {
	assert.Equal(t, "walkthroughs/42/rec_1700000000000_abc.mp4", WalkthroughKey(42, "rec_1700000000000_abc"))
	assert.Equal(t, "walkthroughs/7/evil.mp4", WalkthroughKey(7, "../../evil"))
}

func TestPublicObjectURL(t *testing.T) {
	aws := &S3{cfg: S3Config{Region: "eu-west-1", Bucket: "walkthroughs"}}
	assert.Equal(t, "https://walkthroughs.s3.eu-west-1.amazonaws.com/walkthroughs/1/a.mp4", aws.PublicObjectURL("walkthroughs/1/a.mp4"))

	minio := &S3{cfg: S3Config{Endpoint: "http://localhost:9000/", Bucket: "rec"}}
	assert.Equal(t, "http://localhost:9000/rec/k.mp4", minio.PublicObjectURL("k.mp4"))
}

func TestPresignExpireDefault(t *testing.T) {
	assert.Equal(t, 15.0, (&S3{}).PresignExpire().Minutes())
	assert.Equal(t, 60.0, (&S3{cfg: S3Config{PresignExpireMinutes: 60}}).PresignExpire().Minutes())
}
