package conversation_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/autodev/internal/conversation"
)

const (
	testAPIKeyConstant          = "test-api-key"
	testModelIdentifierConstant = "claude-3-5-sonnet-20241022"
	testInvalidRoleConstant     = conversation.MessageRole("moderator")
)

func TestNewAnthropicClientValidatesInputs(testInstance *testing.T) {
	testCases := []struct {
		name            string
		apiKey          string
		modelIdentifier string
		expectedError   error
	}{
		{
			name:            "missing_api_key",
			apiKey:          "",
			modelIdentifier: testModelIdentifierConstant,
			expectedError:   conversation.ErrAPIKeyMissing,
		},
		{
			name:            "blank_api_key",
			apiKey:          "   ",
			modelIdentifier: testModelIdentifierConstant,
			expectedError:   conversation.ErrAPIKeyMissing,
		},
		{
			name:            "missing_model",
			apiKey:          testAPIKeyConstant,
			modelIdentifier: "",
			expectedError:   conversation.ErrModelMissing,
		},
		{
			name:            "complete_inputs",
			apiKey:          testAPIKeyConstant,
			modelIdentifier: testModelIdentifierConstant,
			expectedError:   nil,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			createdClient, creationError := conversation.NewAnthropicClient(testCase.apiKey, testCase.modelIdentifier)
			if testCase.expectedError != nil {
				require.ErrorIs(subTest, creationError, testCase.expectedError)
				require.Nil(subTest, createdClient)
				return
			}
			require.NoError(subTest, creationError)
			require.NotNil(subTest, createdClient)
		})
	}
}

func TestCompleteRejectsUnsupportedRole(testInstance *testing.T) {
	createdClient, creationError := conversation.NewAnthropicClient(testAPIKeyConstant, testModelIdentifierConstant)
	require.NoError(testInstance, creationError)

	_, completionError := createdClient.Complete(context.Background(), conversation.ChatRequest{
		Messages: []conversation.Message{{Role: testInvalidRoleConstant, Content: "hello"}},
	})
	require.Error(testInstance, completionError)
	require.Contains(testInstance, completionError.Error(), string(testInvalidRoleConstant))
}
