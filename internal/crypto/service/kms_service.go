package service

import (
	"context"
	"fmt"
	"net/url"
	"slices"

	"gocloud.dev/secrets"

	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// KeeperSchemes lists the KMS_KEY_URI schemes that can wrap master key material.
var KeeperSchemes = []string{"awskms", "azurekeyvault", "base64key", "gcpkms", "hashivault"}

type kmsService struct{}

// NewKMSService creates a new KMS service instance.
func NewKMSService() KMSService {
	return &kmsService{}
}

// OpenKeeper opens the keeper that wraps master key material at rest.
func (k *kmsService) OpenKeeper(ctx context.Context, keyURI string) (KMSKeeper, error) {
	u, err := url.Parse(keyURI)
	if err != nil {
		return nil, fmt.Errorf("invalid KMS key URI: %w", err)
	}
	if !slices.Contains(KeeperSchemes, u.Scheme) {
		return nil, fmt.Errorf("unsupported KMS key URI scheme %q (supported: %v)", u.Scheme, KeeperSchemes)
	}

	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	return keeper, nil
}
