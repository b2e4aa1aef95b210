package main

import (
	"context"
	"fmt"
	"io"

	"go.mongodb.org/mongo-driver/mongo"

	"actiontag/internal/classification"
	"actiontag/internal/config"
	"actiontag/internal/constants"
	"actiontag/internal/lastseen"
	"actiontag/internal/logger"
	"actiontag/internal/store"
	"actiontag/pkg/bootstrap"
	"actiontag/pkg/classifier"
	"actiontag/pkg/logging"
	"actiontag/pkg/models"
)

// runClassify reads one document, classifies it and either prints it to out
// or writes it to the configured sink under name.
func runClassify(ctx context.Context, cfg *config.Config, log logger.Logger, path, name string, out io.Writer) error {
	if name != "" {
		if err := store.ValidateName(name); err != nil {
			return err
		}
		ctx = logging.WithDocumentName(ctx, name)
	}

	svc, err := classification.NewService(classifier.Default(), cfg.Classification, lastseen.NewMemoryRepository(), log)
	if err != nil {
		return err
	}

	doc, err := store.NewFileSource(cfg.Store.SourceDir).Read(ctx, path)
	if err != nil {
		log.ErrorwCtx(ctx, "Failed to read document", "path", path, "error", err)
		return err
	}

	annotated, err := svc.ClassifyDocument(ctx, doc, classification.OriginCLI)
	if err != nil {
		log.ErrorwCtx(ctx, "Failed to classify document", "path", path, "error", err)
		return err
	}

	if name == "" {
		data, err := store.Encode(annotated)
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	}

	dbConnector := bootstrap.NewDatabaseConnector(cfg, log)
	mongoClient, err := connectSinkDatabase(ctx, cfg, dbConnector)
	if err != nil {
		return err
	}
	defer dbConnector.ShutdownDatabases(context.Background(), nil, mongoClient)

	sink, err := newSink(ctx, cfg, mongoClient)
	if err != nil {
		return err
	}
	defer sink.Close(ctx)

	location, err := sink.Write(ctx, name, annotated)
	if err != nil {
		log.ErrorwCtx(ctx, "Failed to write document", "error", err)
		return err
	}

	log.InfowCtx(ctx, "Document classified",
		"action", annotated[models.ActionKey],
		"location", location,
	)
	_, err = fmt.Fprintln(out, location)
	return err
}

func connectSinkDatabase(ctx context.Context, cfg *config.Config, dc *bootstrap.DatabaseConnector) (*mongo.Client, error) {
	if cfg.Store.Sink.Type != constants.SinkTypeMongoDB {
		return nil, nil
	}
	client, err := dc.InitMongoDB(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mongodb: %w", err)
	}
	return client, nil
}

func newSink(ctx context.Context, cfg *config.Config, mongoClient *mongo.Client) (store.Sink, error) {
	switch cfg.Store.Sink.Type {
	case constants.SinkTypeMongoDB:
		if mongoClient == nil {
			return nil, fmt.Errorf("mongodb sink requires database.mongodb.uri")
		}
		db := mongoClient.Database(cfg.Database.MongoDB.Database)
		sink := store.NewMongoSink(db, cfg.Database.MongoDB.Collection, cfg.Store.Sink.Overwrite, classifier.Default())
		if err := sink.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		return sink, nil
	case constants.SinkTypeFile, "":
		return store.NewFileSink(cfg.Store.Sink.Dir, cfg.Store.Sink.Overwrite, classifier.Default()), nil
	default:
		return nil, fmt.Errorf("unknown sink type: %s", cfg.Store.Sink.Type)
	}
}
