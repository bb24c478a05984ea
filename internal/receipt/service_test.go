package receipt_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/receiptwise/receiptwise/internal/apperr"
	"github.com/receiptwise/receiptwise/internal/realtime"
	"github.com/receiptwise/receiptwise/internal/receipt"
	"github.com/receiptwise/receiptwise/internal/vision"
)

func TestService_Capture(t *testing.T) {
	userID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := receipt.NewMockRepository(ctrl)
		images := receipt.NewMockImageStore(ctrl)
		gate := receipt.NewMockUsageGate(ctrl)

		gate.EXPECT().CanUploadReceipt(gomock.Any()).Return(nil)
		gate.EXPECT().RecordUpload(gomock.Any())
		images.EXPECT().
			UploadImage(gomock.Any(), gomock.Any(), gomock.Any(), "image/jpeg").
			Return("https://cdn.example.com/r1.jpg", nil)
		repo.EXPECT().
			Create(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, r *receipt.Receipt) error {
				r.ID = uuid.New()
				r.CreatedAt = time.Now()
				return nil
			})

		svc := receipt.NewService(repo, images, gate, nil, nil)

		r, err := svc.Capture(context.Background(), receipt.CaptureParams{
			UserID:      userID,
			Image:       make([]byte, 2*1024*1024),
			ContentType: "image/jpeg",
			Currency:    "EUR",
		})

		require.NoError(t, err)
		assert.Equal(t, receipt.ProcessingPending, r.Processing)
		assert.Equal(t, receipt.StatusActive, r.Status)
		assert.Equal(t, "https://cdn.example.com/r1.jpg", r.ImageURL)
		assert.Len(t, svc.Container().Data(), 1)
	})

	t.Run("OversizedImage", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := receipt.NewMockRepository(ctrl)
		images := receipt.NewMockImageStore(ctrl)
		gate := receipt.NewMockUsageGate(ctrl)

		gate.EXPECT().CanUploadReceipt(gomock.Any()).Return(nil)
		images.EXPECT().
			UploadImage(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return("", apperr.New(apperr.KindFile, "file is 6.0 MB, the limit is 5.0 MB"))

		svc := receipt.NewService(repo, images, gate, nil, nil)

		_, err := svc.Capture(context.Background(), receipt.CaptureParams{
			UserID:      userID,
			Image:       make([]byte, 6*1024*1024),
			ContentType: "image/jpeg",
		})

		require.Error(t, err)
		assert.Equal(t, apperr.KindFile, apperr.KindOf(err))
		assert.Empty(t, svc.Container().Data())
	})

	t.Run("UsageLimitReached", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := receipt.NewMockRepository(ctrl)
		images := receipt.NewMockImageStore(ctrl)
		gate := receipt.NewMockUsageGate(ctrl)

		gate.EXPECT().
			CanUploadReceipt(gomock.Any()).
			Return(apperr.New(apperr.KindValidation, "monthly receipt limit reached"))

		svc := receipt.NewService(repo, images, gate, nil, nil)

		_, err := svc.Capture(context.Background(), receipt.CaptureParams{
			UserID:      userID,
			Image:       []byte{1},
			ContentType: "image/jpeg",
		})

		assert.Error(t, err)
	})

	t.Run("EmptyImage", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		svc := receipt.NewService(receipt.NewMockRepository(ctrl), receipt.NewMockImageStore(ctrl), nil, nil, nil)

		_, err := svc.Capture(context.Background(), receipt.CaptureParams{UserID: userID})
		require.Error(t, err)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})
}

func TestService_Capture_LocalExtraction(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := receipt.NewMockRepository(ctrl)
	images := receipt.NewMockImageStore(ctrl)
	extractor := receipt.NewMockExtractor(ctrl)

	images.EXPECT().UploadImage(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return("url", nil)
	extractor.EXPECT().
		Scan(gomock.Any(), gomock.Any(), "image/png").
		Return(&vision.ReceiptData{
			Merchant:      "Coffee Corner",
			Date:          "2026-02-14",
			Total:         12.80,
			Tax:           1.20,
			PaymentMethod: "card",
			LineItems: []vision.LineItemData{
				{Description: "Espresso", Quantity: 2, UnitPrice: 2.4, Total: 4.8},
			},
		}, nil)
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

	svc := receipt.NewService(repo, images, nil, extractor, nil)

	r, err := svc.Capture(context.Background(), receipt.CaptureParams{
		UserID:      uuid.New(),
		Image:       []byte{1, 2, 3},
		ContentType: "image/png",
	})

	require.NoError(t, err)
	assert.Equal(t, receipt.ProcessingCompleted, r.Processing)
	assert.Equal(t, "Coffee Corner", r.Merchant)
	assert.True(t, r.Total.Equal(decimal.NewFromFloat(12.80)))
	assert.Equal(t, time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC), r.Date)
	require.Len(t, r.LineItems, 1)
	assert.Equal(t, "Espresso", r.LineItems[0].Description)
}

func TestService_Capture_ExtractionFailureLeavesPending(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := receipt.NewMockRepository(ctrl)
	images := receipt.NewMockImageStore(ctrl)
	extractor := receipt.NewMockExtractor(ctrl)

	images.EXPECT().UploadImage(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return("url", nil)
	extractor.EXPECT().Scan(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, assert.AnError)
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

	svc := receipt.NewService(repo, images, nil, extractor, nil)

	r, err := svc.Capture(context.Background(), receipt.CaptureParams{
		UserID:      uuid.New(),
		Image:       []byte{1},
		ContentType: "image/jpeg",
	})

	require.NoError(t, err)
	assert.Equal(t, receipt.ProcessingPending, r.Processing, "server pipeline picks it up from pending")
}

func TestService_Edit(t *testing.T) {
	t.Run("ForcesTerminalProcessing", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		id := uuid.New()
		stored := &receipt.Receipt{ID: id, Processing: receipt.ProcessingInProgress, Total: decimal.NewFromInt(10)}

		repo := receipt.NewMockRepository(ctrl)
		repo.EXPECT().Get(gomock.Any(), id).Return(stored, nil)
		repo.EXPECT().
			Update(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, r *receipt.Receipt) error {
				assert.True(t, r.Processing.Terminal())
				return nil
			})

		svc := receipt.NewService(repo, nil, nil, nil, nil)

		merchant := "Edited Deli"
		r, err := svc.Edit(context.Background(), id, receipt.EditParams{Merchant: &merchant})

		require.NoError(t, err)
		assert.Equal(t, "Edited Deli", r.Merchant)
		assert.Equal(t, receipt.ProcessingCompleted, r.Processing)
	})

	t.Run("RejectsNonPositiveTotal", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		id := uuid.New()

		repo := receipt.NewMockRepository(ctrl)
		repo.EXPECT().Get(gomock.Any(), id).Return(&receipt.Receipt{ID: id}, nil)

		svc := receipt.NewService(repo, nil, nil, nil, nil)

		zero := decimal.Zero
		_, err := svc.Edit(context.Background(), id, receipt.EditParams{Total: &zero})

		require.Error(t, err)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})
}

func TestService_Delete_RollbackOnFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	id := uuid.New()

	repo := receipt.NewMockRepository(ctrl)
	repo.EXPECT().
		List(gomock.Any(), gomock.Any()).
		Return([]*receipt.Receipt{{ID: id, Merchant: "Keeper"}}, nil)
	repo.EXPECT().
		Delete(gomock.Any(), id).
		Return(&apperr.BackendError{Status: 500, Message: "boom"})

	svc := receipt.NewService(repo, nil, nil, nil, nil)
	require.NoError(t, svc.Load(context.Background(), receipt.ListFilter{}))

	err := svc.Delete(context.Background(), id)
	require.Error(t, err)

	require.Len(t, svc.Container().Data(), 1, "list restored after failed delete")
	assert.Equal(t, "Keeper", svc.Container().Data()[0].Merchant)
}

func TestService_HandleProcessingUpdate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	id := uuid.New()

	repo := receipt.NewMockRepository(ctrl)
	repo.EXPECT().
		List(gomock.Any(), gomock.Any()).
		Return([]*receipt.Receipt{{ID: id, Processing: receipt.ProcessingPending}}, nil)

	svc := receipt.NewService(repo, nil, nil, nil, nil)
	require.NoError(t, svc.Load(context.Background(), receipt.ListFilter{}))

	svc.HandleUpdate(realtime.Row{"id": id.String(), "processing_status": "completed"})

	assert.Equal(t, receipt.ProcessingCompleted, svc.Container().Data()[0].Processing)
}
