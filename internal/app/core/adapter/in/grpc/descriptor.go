package grpc

import (
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
)

const (
	protoPackage    = "ledger.v1"
	structProtoFile = "google/protobuf/struct.proto"
	structTypeName  = ".google.protobuf.Struct"
)

// 把 LedgerService 的檔案描述註冊到 protoregistry.GlobalFiles，
// grpc reflection 依此回答 FileByFilename / FileContainingSymbol
func init() {
	fd, err := protodesc.NewFile(ledgerFileDescriptor(), protoregistry.GlobalFiles)
	if err != nil {
		panic(err)
	}
	if err := protoregistry.GlobalFiles.RegisterFile(fd); err != nil {
		panic(err)
	}
}

// ledgerFileDescriptor 由 ServiceDesc 產生，方法清單只有一份來源
func ledgerFileDescriptor() *descriptorpb.FileDescriptorProto {
	methods := make([]*descriptorpb.MethodDescriptorProto, 0, len(ServiceDesc.Methods))
	for _, m := range ServiceDesc.Methods {
		methods = append(methods, &descriptorpb.MethodDescriptorProto{
			Name:       proto.String(m.MethodName),
			InputType:  proto.String(structTypeName),
			OutputType: proto.String(structTypeName),
		})
	}
	return &descriptorpb.FileDescriptorProto{
		Name:       proto.String(protoFile),
		Package:    proto.String(protoPackage),
		Dependency: []string{structProtoFile},
		Syntax:     proto.String("proto3"),
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name:   proto.String("LedgerService"),
			Method: methods,
		}},
	}
}
