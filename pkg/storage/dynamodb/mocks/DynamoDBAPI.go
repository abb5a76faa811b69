package mocks

import (
	context "context"

	dynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	mock "github.com/stretchr/testify/mock"
)

// DynamoDBAPI is a mock type for the DynamoDBAPI type
type DynamoDBAPI struct {
	mock.Mock
}

// GetItem provides a mock function with given fields: ctx, params, optFns
func (_m *DynamoDBAPI) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	ret := _m.Called(ctx, params)

	var r0 *dynamodb.GetItemOutput
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*dynamodb.GetItemOutput)
	}

	return r0, ret.Error(1)
}

// PutItem provides a mock function with given fields: ctx, params, optFns
func (_m *DynamoDBAPI) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	ret := _m.Called(ctx, params)

	var r0 *dynamodb.PutItemOutput
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*dynamodb.PutItemOutput)
	}

	return r0, ret.Error(1)
}

// UpdateItem provides a mock function with given fields: ctx, params, optFns
func (_m *DynamoDBAPI) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	ret := _m.Called(ctx, params)

	var r0 *dynamodb.UpdateItemOutput
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*dynamodb.UpdateItemOutput)
	}

	return r0, ret.Error(1)
}

// Query provides a mock function with given fields: ctx, params, optFns
func (_m *DynamoDBAPI) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	ret := _m.Called(ctx, params)

	var r0 *dynamodb.QueryOutput
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*dynamodb.QueryOutput)
	}

	return r0, ret.Error(1)
}

// Scan provides a mock function with given fields: ctx, params, optFns
func (_m *DynamoDBAPI) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	ret := _m.Called(ctx, params)

	var r0 *dynamodb.ScanOutput
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*dynamodb.ScanOutput)
	}

	return r0, ret.Error(1)
}

// TransactWriteItems provides a mock function with given fields: ctx, params, optFns
func (_m *DynamoDBAPI) TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	ret := _m.Called(ctx, params)

	var r0 *dynamodb.TransactWriteItemsOutput
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*dynamodb.TransactWriteItemsOutput)
	}

	return r0, ret.Error(1)
}
